package ocr

import (
	"context"

	"studybuddy/internal/pkg/pdfextract"
)

// Local reads the embedded text layer of a PDF. Scanned pages yield nothing.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return "local" }

func (l *Local) Process(ctx context.Context, data []byte, _ string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts, err := pdfextract.ExtractPages(data)
	if err != nil {
		return nil, err
	}
	pages := pagesFromStrings(texts)
	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return &Result{Provider: l.Name(), Pages: pages}, nil
}
