package document

import (
	"context"
	"fmt"
	"strings"

	"studybuddy/internal/ai"
	"studybuddy/internal/apperr"
)

const (
	answerPrefix       = "📄 **Dựa trên tài liệu:** "
	fallbackPrefix     = "Dựa trên tài liệu: "
	msgNoDocument      = "Không có tài liệu nào để trả lời câu hỏi."
	maxFallbackMatches = 3

	answerSystemPrompt = `Bạn là một AI assistant chuyên trả lời câu hỏi dựa trên tài liệu được cung cấp.
Hãy trả lời chính xác, chi tiết và dựa hoàn toàn vào nội dung tài liệu.
Nếu thông tin không có trong tài liệu, hãy nói rõ là không tìm thấy thông tin đó.`
)

type Answer struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
	// Failure is set when the completion call failed and Text came from
	// keyword extraction.
	Failure *apperr.LLMFailure `json:"-"`
}

// Guidance is the user-facing hint for a fallback answer, empty otherwise.
func (a Answer) Guidance() string {
	if a.Failure == nil {
		return ""
	}
	return a.Failure.Guidance
}

// Answer responds to question from the whole document.
func (p *Pipeline) Answer(ctx context.Context, question, text string) Answer {
	return p.AnswerWithin(ctx, question, text, DocumentContextBudget)
}

// AnswerWithin responds to question using at most budget runes of context.
func (p *Pipeline) AnswerWithin(ctx context.Context, question, text string, budget int) Answer {
	if strings.TrimSpace(text) == "" {
		return Answer{Text: msgNoDocument}
	}

	excerpt := Assemble(question, text, budget)
	out, err := p.complete(ctx, ai.PresetDocumentQA, []ai.ChatMessage{
		ai.System(answerSystemPrompt),
		ai.User(answerPrompt(excerpt, question)),
	})
	if err != nil {
		failure := apperr.NewLLMFailure(err)
		p.logFailure(ctx, "answer", err, "category", failure.Category)
		return Answer{Text: KeywordAnswer(question, text), Fallback: true, Failure: failure}
	}
	return Answer{Text: answerPrefix + out}
}

func answerPrompt(excerpt, question string) string {
	return fmt.Sprintf(`Dựa vào đoạn văn bản sau, hãy trả lời câu hỏi một cách chính xác và chi tiết:

ĐOẠN VĂN BẢN:
%s

CÂU HỎI: %s

Hãy trả lời bằng tiếng Việt, dựa hoàn toàn vào thông tin trong đoạn văn bản trên:`, excerpt, question)
}

// KeywordAnswer extracts up to three sentences of text that mention a
// keyword of question. It never calls out to a model.
func KeywordAnswer(question, text string) string {
	keywords := ExtractKeywords(question)
	var matches []string
	for _, sentence := range strings.Split(text, ".") {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches = append(matches, strings.TrimSpace(sentence))
				break
			}
		}
		if len(matches) == maxFallbackMatches {
			break
		}
	}
	if len(matches) == 0 {
		return NoInformationMessage(question)
	}
	return fallbackPrefix + strings.Join(matches, ". ") + "."
}

func NoInformationMessage(question string) string {
	return fmt.Sprintf("Không tìm thấy thông tin cụ thể về '%s' trong tài liệu.", question)
}
