package document

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	// boundaryWindow is how far back from a window end we look for a
	// sentence or paragraph terminator.
	boundaryWindow = 100
)

// Chunk is a window of a document. Start and End are rune offsets of the
// untrimmed window; Text is trimmed.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// ChunkWindows splits text into overlapping windows of at most size runes,
// preferring to cut right after '.', '!', '?' or '\n'.
func ChunkWindows(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + size
		if end < n {
			floor := end - boundaryWindow
			if floor < start {
				floor = start
			}
			for i := end - 1; i >= floor; i-- {
				if isBoundary(runes[i]) {
					end = i + 1
					break
				}
			}
		} else {
			end = n
		}

		if trimmed := strings.TrimSpace(string(runes[start:end])); trimmed != "" {
			chunks = append(chunks, Chunk{Text: trimmed, Start: start, End: end})
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// ChunkText is ChunkWindows without offsets.
func ChunkText(text string, size, overlap int) []string {
	windows := ChunkWindows(text, size, overlap)
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.Text)
	}
	return out
}

func isBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// head returns the first n runes of s.
func head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func runeLen(s string) int {
	return len([]rune(s))
}
