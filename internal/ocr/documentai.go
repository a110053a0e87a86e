package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

type DocumentAIConfig struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	Timeout         time.Duration
}

// DocumentAI runs an online Google Document AI OCR processor.
type DocumentAI struct {
	client  *documentai.DocumentProcessorClient
	name    string
	timeout time.Duration
}

func NewDocumentAI(ctx context.Context, cfg DocumentAIConfig) (*DocumentAI, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("documentai project and processor are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}

	opts := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location))}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	return &DocumentAI{
		client:  client,
		name:    fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		timeout: cfg.Timeout,
	}, nil
}

func (d *DocumentAI) Name() string { return "documentai" }

func (d *DocumentAI) Close() error {
	return d.client.Close()
}

func (d *DocumentAI) Process(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if mimeType == "" {
		mimeType = "application/pdf"
	}
	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return nil, ErrNoText
	}

	pages := pagesFromDocument(resp.Document)
	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return &Result{Provider: d.Name(), Pages: pages}, nil
}

func pagesFromDocument(doc *documentaipb.Document) []Page {
	var pages []Page
	for _, p := range doc.GetPages() {
		var b strings.Builder
		for _, para := range p.GetParagraphs() {
			t := strings.TrimSpace(textFromAnchor(doc.GetText(), para.GetLayout().GetTextAnchor()))
			if t == "" {
				continue
			}
			b.WriteString(t)
			b.WriteString("\n")
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			pages = append(pages, Page{Number: int(p.GetPageNumber()), Markdown: text})
		}
	}
	// Some processors fill Text but skip paragraph layout.
	if len(pages) == 0 && strings.TrimSpace(doc.GetText()) != "" {
		pages = append(pages, Page{Number: 1, Markdown: strings.TrimSpace(doc.GetText())})
	}
	return pages
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if end > len(full) {
			end = len(full)
		}
		if start < 0 || start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}
