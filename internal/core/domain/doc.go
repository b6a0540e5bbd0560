// Package domain holds the value types shared by every layer of docqa:
// documents and their chunks, retrieval results and answers, query
// metrics, settings and the error kinds.
//
// Identity is content based. A document's id is a hash of its bytes and a
// chunk's id is derived from that id and the chunk's position, so
// re-ingesting the same file always addresses the same records.
//
// domain imports only the standard library.
package domain
