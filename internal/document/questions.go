package document

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"studybuddy/internal/ai"
)

const (
	MinQuestions = 3
	MaxQuestions = 6

	questionSampleSize    = 500
	questionFallbackScan  = 800
	questionFallbackCount = 4
	requestedQuestions    = 4
)

type topicGroup struct {
	markers  []string
	question string
}

var topicGroups = []topicGroup{
	{[]string{"định nghĩa", "khái niệm", "là gì"}, "Các khái niệm chính được định nghĩa như thế nào?"},
	{[]string{"phương pháp", "cách thức", "quy trình"}, "Phương pháp nào được đề cập trong tài liệu?"},
	{[]string{"kết quả", "thành quả", "hiệu quả"}, "Kết quả chính đạt được là gì?"},
	{[]string{"vấn đề", "thách thức", "khó khăn"}, "Những vấn đề nào được nêu ra?"},
	{[]string{"giải pháp", "đề xuất", "khuyến nghị"}, "Giải pháp nào được đề xuất?"},
	{[]string{"phân tích", "nghiên cứu", "khảo sát"}, "Phân tích chính trong tài liệu là gì?"},
}

var defaultQuestions = []string{
	"Nội dung chính của tài liệu là gì?",
	"Các điểm quan trọng được đề cập?",
	"Thông tin nào đáng chú ý nhất?",
	"Kết luận chính từ tài liệu này?",
}

// GenerateQuestions returns between MinQuestions and MaxQuestions
// suggested questions about text.
func (p *Pipeline) GenerateQuestions(ctx context.Context, text string) []string {
	sample := head(text, questionSampleSize)
	if chunks := ChunkText(text, questionSampleSize, DefaultChunkOverlap); len(chunks) > 0 {
		sample = chunks[0]
	}

	out, err := p.complete(ctx, ai.PresetQuestions, []ai.ChatMessage{ai.User(questionPrompt(sample))})
	if err != nil {
		p.logFailure(ctx, "questions", err)
		return FallbackQuestions(text)
	}
	questions := ParseQuestions(out)
	if len(questions) < MinQuestions {
		p.log.Warn("too few questions parsed, using fallback", "parsed", len(questions))
		return FallbackQuestions(text)
	}
	return questions
}

func questionPrompt(sample string) string {
	return fmt.Sprintf(`Dựa trên đoạn văn sau, tạo %d câu hỏi ngắn gọn mà người đọc có thể quan tâm:

%s

Yêu cầu:
- Mỗi câu hỏi không quá 15 từ
- Tập trung vào thông tin chính
- Phù hợp với nội dung văn bản
- Chỉ trả về %d câu hỏi, mỗi câu một dòng
`, requestedQuestions, sample, requestedQuestions)
}

// ParseQuestions keeps lines containing '?', stripped of list markers,
// deduplicated and capped at MaxQuestions.
func ParseQuestions(raw string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, line := range strings.Split(raw, "\n") {
		q := stripListMarker(strings.TrimSpace(line))
		if q == "" || !strings.Contains(q, "?") {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

func stripListMarker(s string) string {
	s = strings.TrimLeft(s, "-*•· ")
	trimmed := strings.TrimLeftFunc(s, unicode.IsDigit)
	if trimmed != s && (strings.HasPrefix(trimmed, ".") || strings.HasPrefix(trimmed, ")")) {
		s = trimmed[1:]
	}
	return strings.TrimSpace(s)
}

// FallbackQuestions picks canned questions from topic markers found near
// the start of text, padded with generic ones.
func FallbackQuestions(text string) []string {
	sample := strings.ToLower(head(text, questionFallbackScan))
	var candidates []string
	for _, g := range topicGroups {
		for _, m := range g.markers {
			if strings.Contains(sample, m) {
				candidates = append(candidates, g.question)
				break
			}
		}
	}
	candidates = append(candidates, defaultQuestions...)

	out := make([]string, 0, questionFallbackCount)
	seen := map[string]struct{}{}
	for _, q := range candidates {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if len(out) == questionFallbackCount {
			break
		}
	}
	return out
}
