package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studybuddy/internal/apperr"
)

type MistralConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Mistral calls the Mistral OCR endpoint with the document inlined as a data URL.
type Mistral struct {
	httpClient *http.Client
	cfg        MistralConfig
}

func NewMistral(cfg MistralConfig) *Mistral {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-ocr-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Mistral{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

func (m *Mistral) Name() string { return "mistral" }

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

func (m *Mistral) Process(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if m.cfg.APIKey == "" {
		return nil, apperr.New(apperr.KindLLMConnection, "ocr_not_configured", "Mistral API Key chưa được cấu hình. Không thể xử lý PDF.", nil)
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	body, err := json.Marshal(mistralRequest{
		Model: m.cfg.Model,
		Document: mistralDocument{
			Type:        "document_url",
			DocumentURL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ocr request failed: %w", err)
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + "/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ocr request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ocr response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &apperr.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	var parsed mistralResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse ocr json failed: %w", err)
	}

	texts := make([]string, len(parsed.Pages))
	for i, p := range parsed.Pages {
		idx := p.Index
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		texts[idx] = p.Markdown
	}
	pages := pagesFromStrings(texts)
	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return &Result{Provider: m.Name(), Pages: pages}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
