package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"studybuddy/internal/model"
)

const DefaultSessionListLimit = 20

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// FindOrCreate returns the user's session with the given title, creating it
// when absent. The bool reports whether a row was inserted.
// There is no unique index on (user_id, title): two concurrent first messages
// may both insert, and later lookups pick the oldest row.
func (r *SessionRepository) FindOrCreate(ctx context.Context, userID uint, title string) (*model.Session, bool, error) {
	var (
		session model.Session
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND title = ?", userID, title).Order("id ASC").First(&session).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		session = model.Session{UserID: userID, Title: title}
		created = true
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("find or create session failed: %w", err)
	}
	return &session, created, nil
}

// ListByUserID returns the most recently active sessions first.
func (r *SessionRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = DefaultSessionListLimit
	}
	var sessions []model.Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").Order("id DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) GetByIDAndUserID(ctx context.Context, sessionID, userID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) UpdateTitle(ctx context.Context, sessionID, userID uint, title string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]any{"title": title, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("rename session failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Touch bumps updated_at so the session moves to the top of the list.
func (r *SessionRepository) Touch(ctx context.Context, sessionID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", sessionID).
		Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	return nil
}

// DeleteByIDAndUserID removes the session with its messages, documents and
// document pages in one transaction. It reports false when nothing matched.
func (r *SessionRepository) DeleteByIDAndUserID(ctx context.Context, sessionID, userID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.Session
		if err := tx.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		docIDs := tx.Model(&model.SessionDocument{}).Select("id").Where("session_id = ?", sessionID)
		if err := tx.Where("document_id IN (?)", docIDs).Delete(&model.DocumentPage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.SessionDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&session).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete session failed: %w", err)
	}
	return deleted, nil
}
