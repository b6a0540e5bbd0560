package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions and retrieves chunks.
	Query driving.QueryService

	// Ingest deletes documents and reports index statistics.
	Ingest driving.IngestService

	// Metrics exposes the query metrics report. Optional.
	Metrics driving.MetricsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}
