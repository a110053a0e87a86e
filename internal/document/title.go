package document

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultTitle  = "New Chat"
	maxTitleRunes = 30
	titleCutRunes = 27
	minTitleRunes = 3
	previewRunes  = 50

	maxPageTitleRunes = 100
)

var titleStripper = strings.NewReplacer("?", "", "!", "", ".", "")

// GenerateSmartTitle derives a session title from the first user message.
func GenerateSmartTitle(message string) string {
	if message == "" {
		return DefaultTitle
	}
	title := strings.TrimSpace(titleStripper.Replace(strings.TrimSpace(message)))
	title = capitalize(title)
	if runeLen(title) > maxTitleRunes {
		title = head(title, titleCutRunes) + "..."
	}
	if runeLen(title) < minTitleRunes {
		return DefaultTitle
	}
	return title
}

// PageSessionTitle names the session used for chatting with one page.
// Long file names are cut so the title stays within maxPageTitleRunes.
func PageSessionTitle(page int, documentName string) string {
	prefix := fmt.Sprintf("Trang %d - ", page)
	room := maxPageTitleRunes - runeLen(prefix)
	if runeLen(documentName) > room {
		documentName = head(documentName, room-3) + "..."
	}
	return prefix + documentName
}

// Preview shortens a message for session listings.
func Preview(message string) string {
	if runeLen(message) <= previewRunes {
		return message
	}
	return head(message, previewRunes) + "..."
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
