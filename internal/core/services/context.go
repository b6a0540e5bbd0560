package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// blockSeparator sits between source blocks in the assembled context.
const blockSeparator = "\n---\n\n"

// AssembleContext renders chunks, in order, as numbered source blocks:
//
//	[Source 1] (Score: 0.873)
//	chunk text
//
// When maxChars > 0 the result is bounded: the first block is always kept
// (truncated if it alone is too long) and assembly stops at the first block
// that would not fit. Nothing is reordered or deduplicated.
func AssembleContext(chunks []domain.RetrievedChunk, maxChars int) string {
	var b strings.Builder
	size := 0
	for i, c := range chunks {
		block := fmt.Sprintf("[Source %d] (Score: %.3f)\n%s\n", i+1, c.Score, c.Content)
		sep := ""
		if i > 0 {
			sep = blockSeparator
		}
		n := len([]rune(sep)) + len([]rune(block))
		if maxChars > 0 && size+n > maxChars {
			if i == 0 {
				b.WriteString(string([]rune(block)[:maxChars]))
			}
			break
		}
		b.WriteString(sep)
		b.WriteString(block)
		size += n
	}
	return b.String()
}
