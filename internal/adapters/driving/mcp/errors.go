// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ask questions against the local document index.
package mcp

import "errors"

var (
	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("mcp: query service is required")

	// ErrMissingIngestService is returned when the ingest service is not provided.
	ErrMissingIngestService = errors.New("mcp: ingest service is required")
)
