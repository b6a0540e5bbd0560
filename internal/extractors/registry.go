package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors/markdown"
	"github.com/custodia-labs/docqa/internal/extractors/pdf"
	"github.com/custodia-labs/docqa/internal/extractors/plaintext"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.Extractor = (*Registry)(nil)

// Registry dispatches to an extractor by lower-cased file extension.
type Registry struct {
	byExt map[string]driven.Extractor
}

// NewRegistry creates a registry. Later extractors replace earlier ones
// registered for the same extension.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{byExt: make(map[string]driven.Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// NewDefaultRegistry creates a registry for .txt, .md and .pdf.
func NewDefaultRegistry() *Registry {
	return NewRegistry(plaintext.New(), markdown.New(), pdf.New())
}

// Register adds e for each of its extensions.
func (r *Registry) Register(e driven.Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[Ext(filename)]
	return ok
}

// Extract selects the extractor for filename and checks that the content
// matches: PDFs must sniff as application/pdf and text formats as text.
func (r *Registry) Extract(ctx context.Context, raw []byte, filename string) (*driven.Extraction, error) {
	ext := Ext(filename)
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("extract %s: %w: extension %q (supported: %s)",
			filename, domain.ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
	}

	detected := mimetype.Detect(raw)
	if !contentMatches(ext, detected) {
		return nil, fmt.Errorf("extract %s: %w: content is %s",
			filename, domain.ErrUnsupportedFormat, detected.String())
	}
	logger.Debug("extract %s: %s via %T", filename, detected.String(), e)

	return e.Extract(ctx, raw, filename)
}

// Ext returns the lower-cased extension of filename, with the dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func contentMatches(ext string, m *mimetype.MIME) bool {
	switch ext {
	case ".pdf":
		return m.Is("application/pdf")
	case ".txt", ".md":
		for ; m != nil; m = m.Parent() {
			if m.Is("text/plain") {
				return true
			}
		}
		return false
	default:
		return true
	}
}
