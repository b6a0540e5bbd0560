package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifyDocument_Deterministic(t *testing.T) {
	raw := []byte("the same bytes under any filename")

	first := IdentifyDocument(raw)
	second := IdentifyDocument(append([]byte(nil), raw...))

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "doc_"))
	assert.Len(t, first, len("doc_")+docIDHexLen)
}

func TestIdentifyDocument_DifferentContent(t *testing.T) {
	assert.NotEqual(t, IdentifyDocument([]byte("a")), IdentifyDocument([]byte("b")))
}

func TestIdentifyDocument_Empty(t *testing.T) {
	// sha256 of the empty input is well known.
	assert.Equal(t, "doc_e3b0c44298fc1c149afbf4c8996fb924", IdentifyDocument(nil))
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc_abc_chunk_0", ChunkID("doc_abc", 0))
	assert.Equal(t, "doc_abc_chunk_12", ChunkID("doc_abc", 12))
}
