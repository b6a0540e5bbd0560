// Package pdf extracts text from PDF files page by page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// PageReader returns the plain text of every page, in order.
type PageReader interface {
	Pages(raw []byte) ([]string, error)
}

// Extractor handles PDF documents.
type Extractor struct {
	reader PageReader
}

// New creates a PDF extractor backed by github.com/ledongthuc/pdf.
func New() *Extractor {
	return &Extractor{reader: libReader{}}
}

// NewWithReader creates an extractor with a custom page reader.
func NewWithReader(r PageReader) *Extractor {
	return &Extractor{reader: r}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract joins the page texts, each preceded by a "--- Page N ---" line.
func (e *Extractor) Extract(ctx context.Context, raw []byte, filename string) (*driven.Extraction, error) {
	pages, err := e.reader.Pages(raw)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w: %w", filename, domain.ErrExtractionFailure, err)
	}

	var b strings.Builder
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i+1)
		b.WriteString(page)
	}

	return &driven.Extraction{
		Text:  b.String(),
		Pages: len(pages),
	}, nil
}

type libReader struct{}

// Pages recovers from parser panics, which malformed files can trigger.
func (libReader) Pages(raw []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
