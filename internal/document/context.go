package document

import (
	"sort"
	"strings"
)

const (
	contextChunkSize    = 500
	contextChunkOverlap = 100

	DocumentContextBudget = 2500
	PageContextBudget     = 1500
)

// Rank scores every 500/100 window of text against the question keywords,
// highest first, ties in document order.
func Rank(question, text string) []ScoredChunk {
	keywords := ExtractKeywords(question)
	windows := ChunkWindows(text, contextChunkSize, contextChunkOverlap)
	scored := make([]ScoredChunk, 0, len(windows))
	for _, w := range windows {
		scored = append(scored, ScoredChunk{Chunk: w, Score: Score(keywords, strings.ToLower(w.Text))})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Assemble picks the best-scoring chunks of text for question within
// maxLength runes. With no matching chunk it falls back to the head of text.
func Assemble(question, text string, maxLength int) string {
	var parts []string
	cur := 0
	for _, sc := range Rank(question, text) {
		if sc.Score <= 0 {
			break
		}
		l := runeLen(sc.Text)
		if cur+l <= maxLength {
			parts = append(parts, sc.Text)
			cur += l
		}
		if cur >= maxLength {
			break
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(head(text, maxLength))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
