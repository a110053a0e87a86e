package document

import (
	"strings"
	"testing"
)

func TestGenerateSmartTitle(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                              "New Chat",
		"  Hãy tóm tắt tài liệu này?  ": "Hãy tóm tắt tài liệu này",
		"TÓM TẮT CHƯƠNG MỘT!":           "Tóm tắt chương một",
		"?!":                            "New Chat",
		"ab":                            "New Chat",
		"Giải thích chi tiết phương pháp nghiên cứu định lượng": "Giải thích chi tiết phương ...",
	}
	for in, want := range cases {
		got := GenerateSmartTitle(in)
		if got != want {
			t.Fatalf("GenerateSmartTitle(%q) = %q, want %q", in, got, want)
		}
		if len([]rune(got)) > 30 {
			t.Fatalf("title %q longer than 30 runes", got)
		}
	}
}

func TestPreviewAndPageTitle(t *testing.T) {
	t.Parallel()

	if got := Preview("ngắn"); got != "ngắn" {
		t.Fatalf("unexpected preview %q", got)
	}
	long := "Đây là một tin nhắn rất dài vượt quá năm mươi ký tự để kiểm tra"
	if got := Preview(long); len([]rune(got)) != 53 {
		t.Fatalf("expected 50 runes plus ellipsis, got %q", got)
	}
	if got := PageSessionTitle(3, "bai-giang.pdf"); got != "Trang 3 - bai-giang.pdf" {
		t.Fatalf("unexpected page title %q", got)
	}
}

func TestPageSessionTitleCutsLongNames(t *testing.T) {
	t.Parallel()

	got := PageSessionTitle(12, strings.Repeat("a", 251)+".pdf")
	if n := len([]rune(got)); n > maxPageTitleRunes {
		t.Fatalf("page title has %d runes, want at most %d", n, maxPageTitleRunes)
	}
	if !strings.HasPrefix(got, "Trang 12 - aaa") || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected page title %q", got)
	}

	name := strings.Repeat("ạ", maxPageTitleRunes-len("Trang 1 - "))
	if got := PageSessionTitle(1, name); got != "Trang 1 - "+name {
		t.Fatalf("name that fits exactly should be kept, got %q", got)
	}
}
