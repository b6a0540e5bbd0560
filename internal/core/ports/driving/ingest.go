package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestService is the write path: ingestion, deletion and index statistics.
type IngestService interface {
	// Ingest extracts, chunks, embeds and indexes one file.
	Ingest(ctx context.Context, raw []byte, filename string, extra map[string]any) (*domain.IngestionReport, error)

	// DeleteDocument removes every chunk of docID. It returns false when
	// the document had no chunks.
	DeleteDocument(ctx context.Context, docID string) (bool, error)

	// Stats reports index size without side effects.
	Stats(ctx context.Context) (*domain.SystemStats, error)

	// RefreshStats reports index size and records it as the metrics
	// log's system snapshot.
	RefreshStats(ctx context.Context) (*domain.SystemStats, error)

	// ListDocuments summarises the documents visible in a peek of the index.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// Supports reports whether filename has an extractable extension.
	Supports(filename string) bool
}
