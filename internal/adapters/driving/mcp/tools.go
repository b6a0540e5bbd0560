package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string            `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK     int               `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
	Filter   map[string]string `json:"filter,omitempty" jsonschema:"metadata key/value pairs every chunk must match"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string             `json:"answer"`
	Sources   []domain.SourceRef `json:"sources"`
	NumChunks int                `json:"num_chunks"`
	AvgScore  *float64           `json:"avg_score,omitempty"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query  string            `json:"query" jsonschema:"the text to find similar chunks for"`
	K      int               `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	Filter map[string]string `json:"filter,omitempty" jsonschema:"metadata key/value pairs every chunk must match"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// DeleteInput is the input schema for the delete_document tool.
type DeleteInput struct {
	DocumentID string `json:"document_id" jsonschema:"the doc_... id returned at ingestion"`
}

// DeleteOutput is the output schema for the delete_document tool.
type DeleteOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// defaultRetrieveK is used when the retrieve tool is called without k.
const defaultRetrieveK = 5

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents, with sources",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the indexed chunks most similar to a query, without generating an answer",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove every chunk of a document from the index",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Report chunk and document counts of the index",
	}, s.handleStats)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Query.Ask(ctx, input.Question, domain.AskOptions{
		TopK:           input.TopK,
		Filter:         input.Filter,
		IncludeSources: true,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	return nil, AskOutput{
		Answer:    answer.Text,
		Sources:   sources,
		NumChunks: answer.NumChunks,
		AvgScore:  answer.AvgScore,
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultRetrieveK
	}

	chunks, err := s.ports.Query.Retrieve(ctx, input.Query, k, input.Filter)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i, c := range chunks {
		src := c.Source()
		output.Chunks[i] = ChunkOutput{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Filename:   src.Filename,
			ChunkIndex: c.Index,
			Score:      c.Score,
			Content:    c.Content,
		}
	}

	return nil, output, nil
}

// handleDelete handles the delete_document tool invocation.
func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	deleted, err := s.ports.Ingest.DeleteDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{DocumentID: input.DocumentID, Deleted: deleted}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, domain.SystemStats, error) {
	stats, err := s.ports.Ingest.RefreshStats(ctx)
	if err != nil {
		return nil, domain.SystemStats{}, err
	}
	return nil, *stats, nil
}
