// Package plaintext extracts text from .txt files.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const bom = "\uFEFF"

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".txt"}
}

// Extract decodes raw as UTF-8. Invalid sequences become U+FFFD.
func (e *Extractor) Extract(_ context.Context, raw []byte, _ string) (*driven.Extraction, error) {
	return &driven.Extraction{Text: Decode(raw)}, nil
}

// Decode returns raw as valid UTF-8 without a byte order mark.
func Decode(raw []byte) string {
	text := strings.TrimPrefix(string(raw), bom)
	return strings.ToValidUTF8(text, "\uFFFD")
}
