// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Extractor: Turns uploaded bytes into text, selected by extension
//   - EmbeddingService: Maps text to fixed-length vectors
//   - VectorIndex: Nearest-neighbour store for chunk embeddings
//   - GenerationBackend: Produces an answer from instructions, context and question
//   - MetricsStore: Persists the query metrics log
//   - ConfigStore: Application configuration
//   - Observer: Receives operation telemetry (optional)
//
// Every collaborator is constructed explicitly and passed into the
// services that use it. Nothing here is created lazily.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
