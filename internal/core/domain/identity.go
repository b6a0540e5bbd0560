package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// docIDHexLen keeps 128 bits of the SHA-256 digest.
const docIDHexLen = 32

// IdentifyDocument returns the content-addressed id for raw file bytes.
// Identical bytes always produce the identical id, whatever the filename.
func IdentifyDocument(raw []byte) string {
	sum := sha256.Sum256(raw)
	return "doc_" + hex.EncodeToString(sum[:])[:docIDHexLen]
}

// ChunkID returns the index key for the chunk at index within docID.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}
