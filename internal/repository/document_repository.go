package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studybuddy/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateIfAbsent inserts doc unless the session already holds a file with the
// same name and size. It returns the stored row and whether it was inserted.
func (r *DocumentRepository) CreateIfAbsent(ctx context.Context, doc *model.SessionDocument) (*model.SessionDocument, bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(doc)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create document failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return doc, true, nil
	}

	var existing model.SessionDocument
	if err := db.Where("session_id = ? AND file_name = ? AND file_size = ?", doc.SessionID, doc.FileName, doc.FileSize).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("load duplicate document failed: %w", err)
	}
	return &existing, false, nil
}

func (r *DocumentRepository) FindDuplicate(ctx context.Context, sessionID uint, fileName string, fileSize int64) (*model.SessionDocument, error) {
	var doc model.SessionDocument
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND file_name = ? AND file_size = ?", sessionID, fileName, fileSize).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query duplicate document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.SessionDocument, error) {
	var doc model.SessionDocument
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.SessionDocument, error) {
	var doc model.SessionDocument
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// ListBySessionID returns the session's documents in upload order.
func (r *DocumentRepository) ListBySessionID(ctx context.Context, sessionID uint) ([]model.SessionDocument, error) {
	docs := []model.SessionDocument{}
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) CountBySessionID(ctx context.Context, sessionID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.SessionDocument{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}

// UpdateEnrichment stores the summary and suggested questions of a document.
func (r *DocumentRepository) UpdateEnrichment(ctx context.Context, id uint, summary string, questions []string, state string) error {
	if err := r.db.WithContext(ctx).Model(&model.SessionDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"summary":    summary,
			"questions":  datatypes.JSONSlice[string](questions),
			"enrichment": state,
		}).Error; err != nil {
		return fmt.Errorf("update document enrichment failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) MarkEnrichment(ctx context.Context, id uint, state string) error {
	if err := r.db.WithContext(ctx).Model(&model.SessionDocument{}).
		Where("id = ?", id).
		Update("enrichment", state).Error; err != nil {
		return fmt.Errorf("mark document enrichment failed: %w", err)
	}
	return nil
}

// DeleteByIDAndUserID removes a document and its pages.
func (r *DocumentRepository) DeleteByIDAndUserID(ctx context.Context, id, userID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.SessionDocument{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("document_id = ?", id).Delete(&model.DocumentPage{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete document failed: %w", err)
	}
	return deleted, nil
}

// ReplacePages stores the per-page text of a document, dropping older rows.
func (r *DocumentRepository) ReplacePages(ctx context.Context, documentID uint, pages []model.DocumentPage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.DocumentPage{}).Error; err != nil {
			return err
		}
		if len(pages) == 0 {
			return nil
		}
		for i := range pages {
			pages[i].ID = 0
			pages[i].DocumentID = documentID
		}
		return tx.CreateInBatches(pages, 100).Error
	})
	if err != nil {
		return fmt.Errorf("save document pages failed: %w", err)
	}
	return nil
}

// ListPages returns pages ordered by page number.
func (r *DocumentRepository) ListPages(ctx context.Context, documentID uint) ([]model.DocumentPage, error) {
	pages := []model.DocumentPage{}
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list document pages failed: %w", err)
	}
	return pages, nil
}
