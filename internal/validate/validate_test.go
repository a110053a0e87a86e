package validate

import (
	"strings"
	"testing"

	"studybuddy/internal/apperr"
)

func code(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		return ""
	}
	return e.Code
}

func TestUserFields(t *testing.T) {
	t.Parallel()

	if err := Username("alice_01"); err != nil {
		t.Fatalf("valid username rejected: %v", err)
	}
	if got := code(Username("al")); got != "invalid_username" {
		t.Fatalf("expected invalid_username, got %q", got)
	}
	if got := code(Username("   ")); got != "empty_username" {
		t.Fatalf("expected empty_username, got %q", got)
	}
	if err := Email("a.b@example.edu.vn"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if got := code(Email("a@b")); got != "invalid_email" {
		t.Fatalf("expected invalid_email, got %q", got)
	}
	if got := code(Password("12345")); got != "password_too_short" {
		t.Fatalf("expected password_too_short, got %q", got)
	}
	if got := code(Password(strings.Repeat("p", 101))); got != "password_too_long" {
		t.Fatalf("expected password_too_long, got %q", got)
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "Tài liệu nói về gì?", want: ""},
		{in: "  ", want: "empty_message"},
		{in: strings.Repeat("a", 11), want: "spam_message"},
		{in: strings.Repeat("ạ", 10) + "b", want: ""},
		{in: "THIS IS FINE", want: ""},
		{in: strings.Repeat("ABCDE", 4), want: "spam_message"},
		{in: "wow!!!!!", want: "spam_message"},
		{in: strings.Repeat("xy", 5001), want: "message_too_long"},
	}
	for _, tc := range cases {
		if got := code(Message(tc.in)); got != tc.want {
			t.Fatalf("Message(%.20q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	if err := FileName("bai giang.pdf"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	for name, want := range map[string]string{
		"":                          "empty_filename",
		"a/b.pdf":                   "invalid_filename_char",
		"x?.txt":                    "invalid_filename_char",
		"con.txt":                   "reserved_filename",
		strings.Repeat("n", 256):    "filename_too_long",
	} {
		if got := code(FileName(name)); got != want {
			t.Fatalf("FileName(%.20q) = %q, want %q", name, got, want)
		}
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	if err := Upload("notes.md", []byte("# hi"), 0); err != nil {
		t.Fatalf("markdown rejected: %v", err)
	}
	if err := Upload("paper.pdf", []byte("%PDF-1.7 ..."), 0); err != nil {
		t.Fatalf("pdf rejected: %v", err)
	}
	if err := Upload("report.docx", []byte{0x50, 0x4B, 0x03, 0x04, 0x14}, 0); err != nil {
		t.Fatalf("docx rejected: %v", err)
	}

	cases := []struct {
		name string
		data []byte
		max  int64
		want string
	}{
		{"empty.txt", nil, 0, "file_too_small"},
		{"big.txt", make([]byte, 2048), 1024, "file_too_large"},
		{"tool.exe", []byte("MZ.."), 0, "unsupported_format"},
		{"noext", []byte("abc"), 0, "no_extension"},
		{"fake.txt", []byte{0x4D, 0x5A, 0x90, 0x00}, 0, "dangerous_file_signature"},
		{"archive.txt", []byte{0x50, 0x4B, 0x03, 0x04}, 0, "dangerous_file_signature"},
		{"elf.md", []byte{0x7F, 'E', 'L', 'F'}, 0, "dangerous_file_signature"},
		{"scan.pdf", []byte("not a pdf"), 0, "invalid_pdf"},
		{"word.docx", []byte("plain text"), 0, "invalid_docx"},
	}
	for _, tc := range cases {
		if got := code(Upload(tc.name, tc.data, tc.max)); got != tc.want {
			t.Fatalf("Upload(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFileSizePerExtension(t *testing.T) {
	t.Parallel()

	if got := code(FileSize("notes.txt", 51*mb, 0)); got != "file_size_anomaly" {
		t.Fatalf("expected per-extension cap, got %q", got)
	}
	if err := FileSize("paper.pdf", 150*mb, 0); err != nil {
		t.Fatalf("pdf under its cap rejected: %v", err)
	}
}

func TestDocumentAndPage(t *testing.T) {
	t.Parallel()

	if got := code(DocumentContent(" \n ")); got != "empty_document" {
		t.Fatalf("expected empty_document, got %q", got)
	}
	if got := code(DocumentContent(strings.Repeat("a", MaxDocumentChars+1))); got != "document_too_long" {
		t.Fatalf("expected document_too_long, got %q", got)
	}
	if err := PageNumber(3, 3); err != nil {
		t.Fatalf("last page rejected: %v", err)
	}
	for _, p := range []int{0, 4} {
		if !apperr.IsKind(PageNumber(p, 3), apperr.KindValidation) {
			t.Fatalf("page %d should be rejected", p)
		}
	}
}

func TestQuestions(t *testing.T) {
	t.Parallel()

	ok := []string{"Mục tiêu là gì?", "Ai viết nó?", "Khi nào xuất bản?"}
	if err := Questions(ok, 3, 6); err != nil {
		t.Fatalf("valid questions rejected: %v", err)
	}
	if err := Questions(ok[:2], 3, 6); err == nil {
		t.Fatalf("expected too few questions to fail")
	}
	if err := Questions([]string{"Mục tiêu là gì?", "?", "Khi nào xuất bản?"}, 3, 6); err == nil {
		t.Fatalf("expected short question to fail")
	}
}
