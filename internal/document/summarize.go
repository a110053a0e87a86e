package document

import (
	"context"
	"fmt"
	"strings"

	"studybuddy/internal/ai"
)

const (
	summaryInputLimit   = 3000
	summaryChunkOverlap = 200
	summaryMaxChunks    = 4
	summaryMinChunk     = 100
	minWordsPerChunk    = 15

	DefaultSummaryWords = 66

	summarySystemPrompt = "Bạn là một chuyên gia tóm tắt văn bản. Hãy tóm tắt nội dung một cách súc tích và chính xác bằng tiếng Việt."
)

// Summarize condenses text to roughly maxWords words. It never fails: when
// the model is unreachable a fixed notice with the character count is returned.
func (p *Pipeline) Summarize(ctx context.Context, text string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultSummaryWords
	}
	if runeLen(text) <= summaryInputLimit {
		out, err := p.summarizeOnce(ctx, text, maxWords)
		if err != nil {
			p.logFailure(ctx, "summarize", err)
			return fallbackSummary(text)
		}
		return out
	}

	var selected []string
	for _, c := range ChunkText(text, summaryInputLimit, summaryChunkOverlap) {
		if len(selected) == summaryMaxChunks {
			break
		}
		if runeLen(c) > summaryMinChunk {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return fallbackSummary(text)
	}

	perChunk := maxWords / len(selected)
	if perChunk < minWordsPerChunk {
		perChunk = minWordsPerChunk
	}
	var parts []string
	for i, c := range selected {
		out, err := p.summarizeOnce(ctx, c, perChunk)
		if err != nil {
			p.logFailure(ctx, "summarize_chunk", err, "chunk", i)
			continue
		}
		parts = append(parts, out)
	}
	if len(parts) == 0 {
		return fallbackSummary(text)
	}

	combined := strings.Join(parts, " ")
	if runeLen(combined) <= summaryInputLimit {
		return combined
	}
	final, err := p.summarizeOnce(ctx, combined, maxWords)
	if err != nil {
		p.logFailure(ctx, "summarize_final", err)
		return head(combined, summaryInputLimit)
	}
	return final
}

func (p *Pipeline) SummarizeDefault(ctx context.Context, text string) string {
	return p.Summarize(ctx, text, DefaultSummaryWords)
}

func (p *Pipeline) summarizeOnce(ctx context.Context, text string, words int) (string, error) {
	prompt := fmt.Sprintf("Hãy tóm tắt nội dung sau bằng tiếng Việt, khoảng %d từ. Tập trung vào những ý chính và thông tin quan trọng nhất:\n\n%s", words, text)
	return p.complete(ctx, ai.PresetSummarization, []ai.ChatMessage{
		ai.System(summarySystemPrompt),
		ai.User(prompt),
	})
}

func fallbackSummary(text string) string {
	return fmt.Sprintf("📄 **Tóm tắt tự động:** Tài liệu chứa %d ký tự. Nội dung bao gồm các thông tin quan trọng cần được phân tích chi tiết. (Local LLM không khả dụng)", runeLen(text))
}
