// Package cache wraps an embedding service with an in-memory LRU cache.
// Re-ingesting a document or repeating a question skips the provider call.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService caches vectors by model and text hash.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *lru.Cache[[sha256.Size]byte, []float32]
}

// New wraps inner with a cache of size entries. Callers must not modify
// returned vectors; they are shared with the cache.
func New(inner driven.EmbeddingService, size int) (*EmbeddingService, error) {
	c, err := lru.New[[sha256.Size]byte, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &EmbeddingService{inner: inner, cache: c}, nil
}

func (s *EmbeddingService) key(text string) [sha256.Size]byte {
	return sha256.Sum256([]byte(s.inner.ModelName() + "\x00" + text))
}

// Embed returns the cached vector or asks the wrapped service.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	k := s.key(text)
	if vec, ok := s.cache.Get(k); ok {
		return vec, nil
	}
	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(k, vec)
	return vec, nil
}

// EmbedBatch sends only the cache misses to the wrapped service, in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][sha256.Size]byte, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = s.key(text)
		if vec, ok := s.cache.Get(keys[i]); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missIdx), len(missIdx))
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		s.cache.Add(keys[i], vecs[j])
	}
	return out, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping pings the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// Close purges the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}
