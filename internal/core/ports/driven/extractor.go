package driven

import "context"

// Extractor turns raw file bytes into text.
type Extractor interface {
	// Extensions returns the lower-case extensions handled, with the dot.
	Extensions() []string

	// Extract returns the document text. Unknown extensions fail with
	// domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, raw []byte, filename string) (*Extraction, error)
}

// Extraction is the output of an Extractor.
type Extraction struct {
	// Text is the extracted document text.
	Text string

	// Title is set when the format carries one (e.g. a Markdown heading).
	Title string

	// Pages is the page count for paged formats, zero otherwise.
	Pages int
}
