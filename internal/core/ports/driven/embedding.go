// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService turns text into vectors.
//
// Ingestion and querying must share one service: vectors produced by
// different models live in different spaces and cannot be compared.
type EmbeddingService interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, positionally aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	// ModelName identifies the model, e.g. "nomic-embed-text".
	ModelName() string

	// Ping makes the cheapest request that proves the provider answers.
	Ping(ctx context.Context) error

	Close() error
}
