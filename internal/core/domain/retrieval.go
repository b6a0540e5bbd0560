package domain

import (
	"strconv"
	"time"
)

// NoInformationAnswer is returned without calling the generation backend
// when retrieval finds nothing.
const NoInformationAnswer = "No relevant information was found in the database to answer your question."

// RetrievedChunk is a chunk returned for a question. It is never persisted.
type RetrievedChunk struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"doc_id"`
	Index      int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`

	// Distance is the raw cosine distance reported by the index.
	Distance float64 `json:"distance"`

	// Score is always 1 - Distance.
	Score float64 `json:"score"`
}

// ScoreFromDistance maps a cosine distance to the score reported to callers.
// This is the only place the mapping happens.
func ScoreFromDistance(distance float64) float64 {
	return 1 - distance
}

// Filename returns the filename metadata, or "" when absent.
func (c RetrievedChunk) Filename() string {
	s, _ := c.Metadata[MetaFilename].(string)
	return s
}

// UnknownFilename is reported for chunks stored without a filename.
const UnknownFilename = "unknown"

// Source returns the provenance reference for this chunk.
func (c RetrievedChunk) Source() SourceRef {
	filename := c.Filename()
	if filename == "" {
		filename = UnknownFilename
	}
	return SourceRef{
		DocID:      c.DocumentID,
		Filename:   filename,
		ChunkIndex: c.Index,
		Score:      c.Score,
	}
}

// SourceRef identifies a chunk that grounded an answer.
type SourceRef struct {
	DocID      string  `json:"doc_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// AskOptions configures a question.
type AskOptions struct {
	// TopK is the number of chunks to retrieve. Zero means the configured default.
	TopK int

	// Filter restricts retrieval to chunks whose metadata matches every pair.
	Filter map[string]string

	// IncludeSources attaches the source list to the answer.
	IncludeSources bool
}

// Generation is the orchestrator's output for one question.
type Generation struct {
	Text string

	// Sanitized is true when decorative symbols were stripped from the output.
	Sanitized bool

	// Skipped is true when the backend was not called because no chunks matched.
	Skipped bool
}

// Timings are measured with the monotonic clock.
type Timings struct {
	Retrieval  time.Duration `json:"retrieval"`
	Generation time.Duration `json:"generation"`
	Total      time.Duration `json:"total"`
}

// Answer is the result of asking a question.
type Answer struct {
	Question  string      `json:"question"`
	Text      string      `json:"answer"`
	Sources   []SourceRef `json:"sources,omitempty"`
	NumChunks int         `json:"num_chunks"`
	Sanitized bool        `json:"sanitized"`

	// AvgScore is the mean score of the retrieved chunks, nil when none.
	AvgScore *float64 `json:"avg_score"`

	Timings Timings `json:"timings"`
}

// MetadataInt reads an integer metadata value regardless of how the
// store decoded it (int, int64, float64 from JSON, or a numeric string).
func MetadataInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
