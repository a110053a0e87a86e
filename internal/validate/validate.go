// Package validate checks user input before it reaches services.
// Every failure is an *apperr.Error of kind validation with a message that can
// be shown to the user as is.
package validate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"studybuddy/internal/apperr"
)

const (
	MaxFileNameLength  = 255
	MinFileSize        = 1
	MaxMessageLength   = 10000
	MaxDocumentChars   = 1000000
	MaxSessionTitleLen = 100
	minPasswordLength  = 6
	maxPasswordLength  = 100
	mb                 = 1024 * 1024
)

var (
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	upperRunPattern  = regexp.MustCompile(`[A-Z]{20,}`)
	symbolRunPattern = regexp.MustCompile(`[!@#$%^&*]{5,}`)
)

// SizeLimits caps upload size per extension.
var SizeLimits = map[string]int64{
	"txt":  50 * mb,
	"md":   50 * mb,
	"docx": 100 * mb,
	"pdf":  200 * mb,
}

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "LPT1": {}, "LPT2": {},
}

var dangerousSignatures = []struct {
	magic []byte
	kind  string
}{
	{[]byte{0x4D, 0x5A}, "executable"},
	{[]byte{0x7F, 0x45, 0x4C, 0x46}, "elf"},
	{[]byte{0xCA, 0xFE, 0xBA, 0xBE}, "java"},
	{[]byte{0x50, 0x4B, 0x03, 0x04}, "zip_based"},
}

func Username(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperr.Validation("empty_username", "Username không được để trống")
	}
	if !usernamePattern.MatchString(username) {
		return apperr.Validation("invalid_username", "Username chỉ được chứa chữ cái, số và dấu gạch dưới (3-20 ký tự)")
	}
	return nil
}

func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("empty_email", "Email không được để trống")
	}
	if !emailPattern.MatchString(email) {
		return apperr.Validation("invalid_email", "Định dạng email không hợp lệ")
	}
	return nil
}

func Password(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return apperr.Validation("empty_password", "Mật khẩu không được để trống")
	case n < minPasswordLength:
		return apperr.Validation("password_too_short", "Mật khẩu phải có ít nhất 6 ký tự")
	case n > maxPasswordLength:
		return apperr.Validation("password_too_long", "Mật khẩu không được quá 100 ký tự")
	}
	return nil
}

// Message checks a chat message: non-empty, bounded, and not spam.
func Message(message string) error {
	if strings.TrimSpace(message) == "" {
		return apperr.Validation("empty_message", "Tin nhắn không được để trống")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return apperr.Validation("message_too_long", fmt.Sprintf("Tin nhắn quá dài. Tối đa %d ký tự.", MaxMessageLength))
	}
	if IsSpam(message) {
		return apperr.Validation("spam_message", "Tin nhắn chứa nội dung không phù hợp")
	}
	return nil
}

// IsSpam reports a rune repeated 11+ times in a row, a run of 20+ uppercase
// ASCII letters, or 5+ consecutive symbols.
func IsSpam(message string) bool {
	if hasRepeatedRun(message, 11) {
		return true
	}
	return upperRunPattern.MatchString(message) || symbolRunPattern.MatchString(message)
}

func hasRepeatedRun(s string, n int) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

func SessionTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("empty_title", "Tiêu đề session không được để trống")
	}
	if utf8.RuneCountInString(title) > MaxSessionTitleLen {
		return apperr.Validation("title_too_long", "Tiêu đề session không được quá 100 ký tự")
	}
	return nil
}

func FileName(name string) error {
	if name == "" {
		return apperr.Validation("empty_filename", "Tên file không được để trống")
	}
	if utf8.RuneCountInString(name) > MaxFileNameLength {
		return apperr.Validation("filename_too_long", fmt.Sprintf("Tên file quá dài. Tối đa %d ký tự.", MaxFileNameLength))
	}
	if i := strings.IndexAny(name, "<>:\"|?*\\/\x00"); i >= 0 {
		return apperr.Validation("invalid_filename_char", fmt.Sprintf("Tên file chứa ký tự không hợp lệ: %c", name[i]))
	}
	base := strings.ToUpper(strings.SplitN(name, ".", 2)[0])
	if _, ok := reservedNames[base]; ok {
		return apperr.Validation("reserved_filename", "Tên file không được sử dụng tên hệ thống")
	}
	return nil
}

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func FileType(name string) error {
	ext := Extension(name)
	if ext == "" {
		return apperr.Validation("no_extension", "File phải có extension")
	}
	if _, ok := SizeLimits[ext]; !ok {
		return apperr.Validation("unsupported_format", "Định dạng file không được hỗ trợ. Chỉ hỗ trợ: pdf, docx, txt, md.")
	}
	return nil
}

// FileSize checks size against the global cap and the per-extension cap.
func FileSize(name string, size, maxBytes int64) error {
	if size < MinFileSize {
		return apperr.Validation("file_too_small", fmt.Sprintf("File quá nhỏ. Kích thước tối thiểu là %d bytes.", MinFileSize))
	}
	if maxBytes > 0 && size > maxBytes {
		return apperr.Validation("file_too_large", fmt.Sprintf("File quá lớn. Kích thước tối đa là %dMB.", maxBytes/mb))
	}
	if limit, ok := SizeLimits[Extension(name)]; ok && size > limit {
		return apperr.Validation("file_size_anomaly", fmt.Sprintf("File %s vượt quá giới hạn %dMB.", Extension(name), limit/mb))
	}
	return nil
}

// Signature rejects executables by magic bytes. Zip containers are only
// accepted for docx, and pdf uploads must carry the %PDF header.
func Signature(name string, data []byte) error {
	ext := Extension(name)
	for _, sig := range dangerousSignatures {
		if !bytes.HasPrefix(data, sig.magic) {
			continue
		}
		if sig.kind == "zip_based" && ext == "docx" {
			return nil
		}
		return apperr.Validation("dangerous_file_signature", "Phát hiện loại file nguy hiểm: "+sig.kind)
	}
	if ext == "pdf" && !bytes.HasPrefix(data, []byte("%PDF")) {
		return apperr.Validation("invalid_pdf", "File PDF không hợp lệ")
	}
	if ext == "docx" {
		return apperr.Validation("invalid_docx", "File DOCX không hợp lệ")
	}
	return nil
}

// Upload runs every file check in order.
func Upload(name string, data []byte, maxBytes int64) error {
	if err := FileName(name); err != nil {
		return err
	}
	if err := FileSize(name, int64(len(data)), maxBytes); err != nil {
		return err
	}
	if err := FileType(name); err != nil {
		return err
	}
	return Signature(name, data)
}

func DocumentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("empty_document", "Nội dung document trống")
	}
	if utf8.RuneCountInString(content) > MaxDocumentChars {
		return apperr.Validation("document_too_long", "Nội dung document quá dài (tối đa 1,000,000 ký tự)")
	}
	return nil
}

func PageNumber(page, total int) error {
	if page < 1 {
		return apperr.Validation("invalid_page_number", "Số trang phải là số nguyên dương")
	}
	if page > total {
		return apperr.Validation("invalid_page_number", fmt.Sprintf("Số trang không hợp lệ. Phải từ 1 đến %d.", total))
	}
	return nil
}

// Questions checks a suggested question list produced for a document.
func Questions(questions []string, lo, hi int) error {
	if len(questions) < lo || len(questions) > hi {
		return apperr.Validation("invalid_questions", fmt.Sprintf("Số câu hỏi phải từ %d đến %d", lo, hi))
	}
	for i, q := range questions {
		n := utf8.RuneCountInString(strings.TrimFunc(q, unicode.IsSpace))
		if n < 5 || n > 200 {
			return apperr.Validation("invalid_question", fmt.Sprintf("Câu hỏi thứ %d không hợp lệ", i+1))
		}
	}
	return nil
}
