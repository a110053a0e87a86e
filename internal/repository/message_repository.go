package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"studybuddy/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListBySessionID returns messages oldest first.
func (r *MessageRepository) ListBySessionID(ctx context.Context, sessionID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	messages := []model.Message{}
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// ListRecent returns the last n messages of a session, oldest first.
func (r *MessageRepository) ListRecent(ctx context.Context, sessionID uint, n int) ([]model.Message, error) {
	messages := []model.Message{}
	if n <= 0 {
		return messages, nil
	}
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// FirstUserMessages maps each session id to its first user message.
func (r *MessageRepository) FirstUserMessages(ctx context.Context, sessionIDs []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	firstIDs := r.db.Model(&model.Message{}).
		Select("MIN(id)").
		Where("session_id IN ? AND role = ?", sessionIDs, model.RoleUser).
		Group("session_id")

	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", firstIDs).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("query first user messages failed: %w", err)
	}
	for _, m := range messages {
		out[m.SessionID] = m.Content
	}
	return out, nil
}

// CountBySessions maps each session id to its message count.
func (r *MessageRepository) CountBySessions(ctx context.Context, sessionIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		SessionID uint
		Total     int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("session_id, COUNT(*) AS total").
		Where("session_id IN ?", sessionIDs).
		Group("session_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count messages failed: %w", err)
	}
	for _, row := range rows {
		out[row.SessionID] = row.Total
	}
	return out, nil
}

// CountByRole maps role to message count within one session.
func (r *MessageRepository) CountByRole(ctx context.Context, sessionID uint) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Total int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("role, COUNT(*) AS total").
		Where("session_id = ?", sessionID).
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count messages by role failed: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Total
	}
	return out, nil
}
