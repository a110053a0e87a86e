package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EnrichmentReady   = "ready"
	EnrichmentPending = "pending"
	EnrichmentFailed  = "failed"
)

// SessionDocument is an uploaded file attached to a chat session. The same
// (session, file name, size) triple is stored once.
type SessionDocument struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	SessionID   uint                        `gorm:"not null;uniqueIndex:idx_doc_dedup,priority:1" json:"session_id"`
	UserID      uint                        `gorm:"not null;index" json:"user_id"`
	FileName    string                      `gorm:"size:255;not null;uniqueIndex:idx_doc_dedup,priority:2" json:"file_name"`
	FileType    string                      `gorm:"size:16;not null" json:"file_type"`
	FileSize    int64                       `gorm:"not null;uniqueIndex:idx_doc_dedup,priority:3" json:"file_size"`
	Content     string                      `gorm:"type:text;not null" json:"-"`
	Summary     string                      `gorm:"type:text" json:"summary"`
	Questions   datatypes.JSONSlice[string] `json:"questions"`
	PageCount   int                         `gorm:"not null;default:0" json:"page_count"`
	OCRProvider string                      `gorm:"size:32" json:"ocr_provider,omitempty"`
	Enrichment  string                      `gorm:"size:16;not null;default:ready" json:"enrichment"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// DocumentPage keeps the OCR markdown of one page so page questions never
// re-run OCR.
type DocumentPage struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	DocumentID uint   `gorm:"not null;uniqueIndex:idx_doc_page,priority:1" json:"document_id"`
	PageNumber int    `gorm:"not null;uniqueIndex:idx_doc_page,priority:2" json:"page_number"`
	Markdown   string `gorm:"type:text;not null" json:"markdown"`
}
