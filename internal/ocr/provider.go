// Package ocr turns PDF bytes into per-page markdown text.
package ocr

import (
	"context"
	"errors"
	"strings"
)

var ErrNoText = errors.New("ocr returned no text")

type Page struct {
	Number   int    `json:"number"`
	Markdown string `json:"markdown"`
}

type Result struct {
	Provider string
	Pages    []Page
}

// Text joins non-empty pages with blank lines.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		if t := strings.TrimSpace(p.Markdown); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

type Provider interface {
	Name() string
	Process(ctx context.Context, data []byte, mimeType string) (*Result, error)
}

// pagesFromStrings numbers pages from 1 and drops empty ones.
func pagesFromStrings(texts []string) []Page {
	pages := make([]Page, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Markdown: t})
	}
	return pages
}
