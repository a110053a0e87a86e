package app

import (
	"context"
	"strings"

	"studybuddy/internal/ai"
	"studybuddy/internal/model"
	"studybuddy/internal/pkg/reqctx"
)

// Turn is the state a single request works on. It is built from the store at
// the start of the request and dropped at the end; nothing in it outlives the
// request except through the repositories.
type Turn struct {
	UserID         uint
	RequestID      string
	Session        *model.Session
	SessionCreated bool
	Documents      []model.SessionDocument
	History        []model.Message
}

func newTurn(ctx context.Context, userID uint) *Turn {
	return &Turn{UserID: userID, RequestID: reqctx.RequestID(ctx)}
}

func (t *Turn) HasDocuments() bool {
	return len(t.Documents) > 0
}

// DocumentText joins the text of every document in the session.
func (t *Turn) DocumentText() string {
	if len(t.Documents) == 1 {
		return t.Documents[0].Content
	}
	var b strings.Builder
	for i, doc := range t.Documents {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("=== ")
		b.WriteString(doc.FileName)
		b.WriteString(" ===\n")
		b.WriteString(doc.Content)
	}
	return b.String()
}

// ChatHistory converts the loaded history into completion messages.
func (t *Turn) ChatHistory() []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(t.History))
	for _, m := range t.History {
		if m.Role == model.RoleAssistant {
			out = append(out, ai.Assistant(m.Content))
			continue
		}
		out = append(out, ai.User(m.Content))
	}
	return out
}
