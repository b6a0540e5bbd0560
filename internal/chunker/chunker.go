// Package chunker splits document text into overlapping word windows.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultWindow is the default number of words per chunk.
const DefaultWindow = 500

// DefaultOverlap is the default number of words shared by neighbouring chunks.
const DefaultOverlap = 50

// Span is one window of words.
type Span struct {
	// Index is the zero-based position among the returned spans.
	Index int

	// Text is the window's words joined by single spaces.
	Text string

	// StartWord and EndWord are the [start, end) offsets into the word sequence.
	StartWord int
	EndWord   int
}

// Chunk splits text on whitespace into windows of up to window words,
// advancing window-overlap words per step. Windows whose text is empty are
// dropped. The result depends only on the input.
func Chunk(text string, window, overlap int) ([]Span, error) {
	if err := (domain.ChunkingSettings{Window: window, Overlap: overlap}).Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	step := window - overlap
	spans := make([]Span, 0, len(words)/step+1)

	for start := 0; start < len(words); start += step {
		end := min(start+window, len(words))
		joined := strings.TrimSpace(strings.Join(words[start:end], " "))
		if joined == "" {
			continue
		}
		spans = append(spans, Span{
			Index:     len(spans),
			Text:      joined,
			StartWord: start,
			EndWord:   end,
		})
	}

	return spans, nil
}

// Processor turns a Document into domain chunks.
type Processor struct {
	window  int
	overlap int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWindow sets the window size in words.
func WithWindow(words int) Option {
	return func(p *Processor) {
		p.window = words
	}
}

// WithOverlap sets the overlap between windows in words.
func WithOverlap(words int) Option {
	return func(p *Processor) {
		p.overlap = words
	}
}

// New creates a processor. Unlike Chunk it validates once, up front, so a
// bad configuration fails at construction rather than on first use.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		window:  DefaultWindow,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := (domain.ChunkingSettings{Window: p.window, Overlap: p.overlap}).Validate(); err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Window returns the configured window size.
func (p *Processor) Window() int { return p.window }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits doc.Content into chunks carrying their ids and the
// pipeline metadata keys. extra is copied into every chunk's metadata
// first, so the pipeline keys always win.
func (p *Processor) Process(doc *domain.Document, extra map[string]any) ([]domain.Chunk, error) {
	spans, err := Chunk(doc.Content, p.window, p.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, s := range spans {
		meta := make(map[string]any, len(extra)+7)
		for k, v := range extra {
			meta[k] = v
		}
		meta[domain.MetaDocID] = doc.ID
		meta[domain.MetaChunkIndex] = s.Index
		meta[domain.MetaFilename] = doc.Filename
		meta[domain.MetaSourcePath] = doc.SourcePath
		meta[domain.MetaStartWord] = s.StartWord
		meta[domain.MetaEndWord] = s.EndWord
		if doc.Title != "" {
			meta[domain.MetaTitle] = doc.Title
		}

		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, s.Index),
			DocumentID: doc.ID,
			Index:      s.Index,
			Content:    s.Text,
			StartWord:  s.StartWord,
			EndWord:    s.EndWord,
			Metadata:   meta,
		})
	}

	return chunks, nil
}
