package document

import (
	"context"
	"strings"

	"studybuddy/internal/ai"
	"studybuddy/internal/apperr"
)

const (
	// HistoryWindow is how many earlier messages a general chat turn sees.
	HistoryWindow = 10

	chatSystemPrompt   = "Bạn là một AI assistant thông minh và hữu ích. Hãy trả lời các câu hỏi một cách chi tiết và chính xác. Sử dụng tiếng Việt để trả lời."
	msgChatUnavailable = "Xin lỗi, tôi đang gặp sự cố kỹ thuật. Vui lòng thử lại sau."
)

// Chat answers a message outside any document, using the tail of history.
func (p *Pipeline) Chat(ctx context.Context, history []ai.ChatMessage, message string) Answer {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.System(chatSystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, ai.User(message))

	out, err := p.complete(ctx, ai.PresetChat, messages)
	if err != nil {
		failure := apperr.NewLLMFailure(err)
		p.logFailure(ctx, "chat", err, "category", failure.Category)
		return Answer{Text: msgChatUnavailable, Fallback: true, Failure: failure}
	}
	return Answer{Text: strings.TrimSpace(out)}
}
