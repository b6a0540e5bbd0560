package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	resourceScheme = "docqa://"
	jsonMIME       = "application/json"
)

// resource is a read-only JSON view served at docqa://<name>.
type resource struct {
	name        string
	description string
	read        func(ctx context.Context) (any, error)
}

func (s *Server) resources() []resource {
	return []resource{
		{
			name:        "documents",
			description: "Indexed documents with their chunk counts",
			read:        s.readDocuments,
		},
		{
			name:        "metrics",
			description: "Aggregated query metrics and the most recent questions",
			read:        s.readMetrics,
		},
	}
}

func (s *Server) registerResources() {
	for _, r := range s.resources() {
		s.server.AddResource(&mcp.Resource{
			URI:         resourceScheme + r.name,
			Name:        r.name,
			Description: r.description,
			MIMEType:    jsonMIME,
		}, serveJSON(r.read))
	}
}

func (s *Server) readDocuments(ctx context.Context) (any, error) {
	docs, err := s.ports.Ingest.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// readMetrics returns an empty object when no metrics service is wired.
func (s *Server) readMetrics(ctx context.Context) (any, error) {
	if s.ports.Metrics == nil {
		return struct{}{}, nil
	}
	report, err := s.ports.Metrics.Report(ctx)
	if err != nil {
		return nil, fmt.Errorf("building metrics report: %w", err)
	}
	return report, nil
}

func serveJSON(
	read func(ctx context.Context) (any, error),
) func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		v, err := read(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling %s: %w", req.Params.URI, err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: jsonMIME,
				Text:     string(data),
			}},
		}, nil
	}
}
