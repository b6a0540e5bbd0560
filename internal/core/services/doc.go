// Package services holds the question-answering pipeline: ingestion,
// deletion and stats on the write side; retrieval, context assembly,
// generation and metrics on the read side. Services only talk to driven
// ports and are built explicitly by the driving adapters.
package services
