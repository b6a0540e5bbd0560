package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestNewEmbeddingService(t *testing.T) {
	assert.Equal(t, DefaultDimensions, NewEmbeddingService(0).Dimensions())
	s := NewEmbeddingService(64)
	assert.Equal(t, 64, s.Dimensions())
	assert.Equal(t, "hashing-64", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	s := NewEmbeddingService(128)

	a, err := s.Embed(context.Background(), "Kubernetes deploys containers")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "kubernetes   DEPLOYS containers!")
	require.NoError(t, err)

	assert.Equal(t, a, b, "case and punctuation do not change the vector")
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	s := NewEmbeddingService(DefaultDimensions)
	ctx := context.Background()

	query, _ := s.Embed(ctx, "how do I rotate the database password")
	related, _ := s.Embed(ctx, "To rotate the database password run the rotate command")
	unrelated, _ := s.Embed(ctx, "The cafeteria serves lunch at noon on weekdays")

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestEmbed_Empty(t *testing.T) {
	vec, err := NewEmbeddingService(16).Embed(context.Background(), "  ... ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(32)
	got, err := s.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	one, _ := s.Embed(context.Background(), "one")
	assert.Equal(t, one, got[0])
}

func TestEmbed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbeddingService(8).EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
