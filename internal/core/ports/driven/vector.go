package driven

import "context"

// VectorIndex is the persistent nearest-neighbour store holding chunk
// embeddings, their text and metadata. Distances are cosine distances.
type VectorIndex interface {
	// Upsert writes the whole batch as one logical unit. Records whose ID
	// already exists are overwritten.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns up to k records nearest to vector, closest first.
	// Every key/value in filter must equal the record's metadata value.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorHit, error)

	// Delete removes the given ids in one batch. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// IDsWhere returns the ids of records whose metadata key equals value.
	IDsWhere(ctx context.Context, key, value string) ([]string, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Peek returns up to limit stored records, without vectors.
	// The sample is only used for approximate statistics.
	Peek(ctx context.Context, limit int) ([]VectorRecord, error)

	// Close releases resources.
	Close() error
}

// SizeReporter is implemented by indexes that can report their storage size.
type SizeReporter interface {
	SizeBytes(ctx context.Context) (int64, error)
}

// VectorRecord is one stored chunk.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// VectorHit is one query result.
type VectorHit struct {
	ID       string
	Text     string
	Metadata map[string]any

	// Distance is the cosine distance to the query vector.
	Distance float64
}
