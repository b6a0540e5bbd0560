// Package storage holds helpers shared by the vector index adapters in its
// subpackages: cosine distance, metadata filters and top-k selection.
package storage
