// Package markdown extracts text from Markdown files.
package markdown

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors/plaintext"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents. The text is kept as written so
// code blocks and lists reach the generation backend intact.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".md"}
}

// Extract returns the raw Markdown and the first level-one heading as title.
func (e *Extractor) Extract(_ context.Context, raw []byte, _ string) (*driven.Extraction, error) {
	text := plaintext.Decode(raw)
	return &driven.Extraction{
		Text:  text,
		Title: Title(text),
	}, nil
}

// Title returns the text of the first "# " heading outside fenced code,
// or "" if there is none.
func Title(content string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}
