// Package sqlite provides a SQLite-backed implementation of driven.VectorIndex.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Embeddings are stored as little-endian float32 BLOBs next
// to the chunk text and its metadata as JSON. Nearest-neighbour queries are
// exact scans with cosine distance, which is fast enough for a single
// user's document collection.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/index.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Batches are written inside
// one transaction and SQLite runs in WAL mode.
package sqlite
