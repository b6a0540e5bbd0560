package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestAssembleContext(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		{Content: "first", Score: 0.87654},
		{Content: "second", Score: 0.5},
	}

	got := AssembleContext(chunks, 0)

	want := "[Source 1] (Score: 0.877)\nfirst\n" +
		"\n---\n\n" +
		"[Source 2] (Score: 0.500)\nsecond\n"
	assert.Equal(t, want, got)
}

func TestAssembleContext_Empty(t *testing.T) {
	assert.Equal(t, "", AssembleContext(nil, 100))
}

func TestAssembleContext_Bounded(t *testing.T) {
	first := "[Source 1] (Score: 0.900)\nalpha\n"
	chunks := []domain.RetrievedChunk{
		{Content: "alpha", Score: 0.9},
		{Content: "beta", Score: 0.8},
		{Content: "gamma", Score: 0.7},
	}

	t.Run("stops at first block that does not fit", func(t *testing.T) {
		got := AssembleContext(chunks, len(first)+5)
		assert.Equal(t, first, got)
	})

	t.Run("first block is truncated", func(t *testing.T) {
		got := AssembleContext(chunks, 10)
		assert.Equal(t, first[:10], got)
	})

	t.Run("keeps order", func(t *testing.T) {
		got := AssembleContext(chunks, 1000)
		assert.Less(t, strings.Index(got, "alpha"), strings.Index(got, "beta"))
		assert.Less(t, strings.Index(got, "beta"), strings.Index(got, "gamma"))
	})

	t.Run("counts runes", func(t *testing.T) {
		wide := []domain.RetrievedChunk{{Content: strings.Repeat("é", 50), Score: 1}}
		got := AssembleContext(wide, 30)
		assert.Equal(t, 30, utf8.RuneCountInString(got))
		assert.True(t, utf8.ValidString(got))
	})
}
