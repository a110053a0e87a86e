package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"studybuddy/internal/apperr"
	"studybuddy/internal/ocr"
)

// Source is where document text comes from: a fresh upload or a stored row.
type Source interface {
	isSource()
}

type Uploaded struct {
	Filename string
	Data     []byte
}

type Persisted struct {
	Content string
	Pages   []ocr.Page
}

func (Uploaded) isSource()  {}
func (Persisted) isSource() {}

// Extracted is the text of a document plus per-page text when known.
type Extracted struct {
	FileType string
	Text     string
	Pages    []ocr.Page
}

// Extract reads text from src. Uploaded PDFs go through provider.
func Extract(ctx context.Context, src Source, provider ocr.Provider) (*Extracted, error) {
	switch s := src.(type) {
	case Persisted:
		return &Extracted{Text: s.Content, Pages: s.Pages}, nil
	case Uploaded:
		return extractUpload(ctx, s, provider)
	default:
		return nil, fmt.Errorf("unknown document source %T", src)
	}
}

func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

func extractUpload(ctx context.Context, u Uploaded, provider ocr.Provider) (*Extracted, error) {
	ft := FileType(u.Filename)
	switch ft {
	case "txt", "md":
		return &Extracted{FileType: ft, Text: strings.TrimSpace(DecodeText(u.Data))}, nil
	case "docx":
		text, err := ExtractDOCX(u.Data)
		if err != nil {
			return nil, apperr.FileProcessing("docx_processing_failed", "Lỗi xử lý DOCX", err)
		}
		return &Extracted{FileType: ft, Text: text}, nil
	case "pdf":
		if provider == nil {
			return nil, apperr.FileProcessing("ocr_unavailable", "Chưa cấu hình dịch vụ OCR. Không thể xử lý PDF.", nil)
		}
		res, err := provider.Process(ctx, u.Data, "application/pdf")
		if err != nil {
			if errors.Is(err, ocr.ErrNoText) {
				return nil, apperr.FileProcessing("ocr_failed", "OCR PDF thất bại. File có thể bị lỗi hoặc không có text.", err)
			}
			return nil, err
		}
		return &Extracted{FileType: ft, Text: res.Text(), Pages: res.Pages}, nil
	default:
		return nil, apperr.FileProcessing("unsupported_format", fmt.Sprintf("Định dạng file %s không được hỗ trợ", ft), nil)
	}
}

// DecodeText reads UTF-8, BOM-marked UTF-16, and falls back to Latin-1.
func DecodeText(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:])
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeUTF16(data[2:], false)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeUTF16(data[2:], true)
	case utf8.Valid(data):
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func decodeUTF16(data []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if bigEndian {
			units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
		} else {
			units = append(units, uint16(data[i+1])<<8|uint16(data[i]))
		}
	}
	return string(utf16.Decode(units))
}

// ExtractDOCX returns the paragraph text of word/document.xml, one
// paragraph per line.
func ExtractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx zip failed: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("invalid docx: missing word/document.xml")
	}
	rc, err := body.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var out strings.Builder
	var para strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml failed: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString(para.String())
				out.WriteString("\n")
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	out.WriteString(para.String())
	return strings.TrimSpace(out.String()), nil
}

// JoinPages renders a page range with "=== TRANG n ===" headers.
func JoinPages(pages []ocr.Page) string {
	if len(pages) == 1 {
		return pages[0].Markdown
	}
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, fmt.Sprintf("=== TRANG %d ===\n%s", p.Number, p.Markdown))
	}
	return strings.Join(parts, "\n\n")
}
