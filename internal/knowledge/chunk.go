// Package knowledge rebuilds the pre-embedded waste disposal knowledge base from source
// documents (PDF, plain text, Markdown).
package knowledge

import "strings"

// Default chunking parameters.
const (
	DefaultMaxChars = 800
	DefaultOverlap  = 100
)

// ChunkText splits text into windows of at most maxChars characters (runes), each starting
// maxChars-overlap characters after the previous one. Chunks are trimmed and blank chunks are
// dropped. An overlap outside [0, maxChars) is treated as 0.
func ChunkText(text string, maxChars, overlap int) []string {
	out := []string{}
	if maxChars <= 0 {
		return out
	}

	if overlap < 0 || overlap >= maxChars {
		overlap = 0
	}

	runes := []rune(text)
	step := maxChars - overlap

	for start := 0; start < len(runes); start += step {
		end := min(start+maxChars, len(runes))

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}

		if end == len(runes) {
			break
		}
	}

	return out
}
