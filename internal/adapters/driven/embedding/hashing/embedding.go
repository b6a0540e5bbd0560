// Package hashing provides an offline embedding service based on feature
// hashing of word unigrams and bigrams. It needs no model or network and
// is the default provider, so a fresh install can ingest and retrieve.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 384

const bigramWeight = 0.5

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// EmbeddingService maps text to L2-normalised hashed term vectors.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder. dims <= 0 selects
// DefaultDimensions.
func NewEmbeddingService(dims int) *EmbeddingService {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dims}
}

// Embed generates a vector embedding for the given text. Text without any
// word characters maps to the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acc := make([]float64, s.dimensions)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		s.add(acc, tok, 1)
		if i > 0 {
			s.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

// add hashes term into a bucket; the top bit picks the sign so unrelated
// collisions tend to cancel.
func (s *EmbeddingService) add(acc []float64, term string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	idx := sum % uint64(len(acc))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

// EmbedBatch generates embeddings for multiple texts, in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return fmt.Sprintf("hashing-%d", s.dimensions)
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
