package document

import "strings"

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`là gì của có được này đó và với cho từ trong một các những khi nào ai ở đâu sao như thế
		what is are the of and or in on at to for with by`) {
		stopWords[w] = struct{}{}
	}
}

var keywordStripper = strings.NewReplacer("?", "", ",", "", ".", "")

// ExtractKeywords lowercases text and keeps tokens longer than two runes
// that are not stop words. Order and duplicates are preserved.
func ExtractKeywords(text string) []string {
	cleaned := keywordStripper.Replace(strings.ToLower(text))
	var out []string
	for _, w := range strings.Fields(cleaned) {
		if runeLen(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Score sums substring occurrences of every keyword in lowerChunk.
// Matches are not word-bounded: "cat" counts inside "category".
func Score(keywords []string, lowerChunk string) int {
	total := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		total += strings.Count(lowerChunk, kw)
	}
	return total
}

type ScoredChunk struct {
	Chunk
	Score int
}
