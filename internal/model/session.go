package model

import "time"

const DefaultSessionTitle = "New Chat"

type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_session_user_title,priority:1" json:"user_id"`
	Title     string    `gorm:"size:128;not null;index:idx_session_user_title,priority:2" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// SessionSummary is a session row plus the preview shown in session lists.
type SessionSummary struct {
	Session
	Preview      string `json:"preview"`
	MessageCount int64  `json:"message_count"`
}

type SessionStats struct {
	TotalMessages     int64 `json:"total_messages"`
	UserMessages      int64 `json:"user_messages"`
	AssistantMessages int64 `json:"assistant_messages"`
	Documents         int64 `json:"documents"`
}
