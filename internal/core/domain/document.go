package domain

import "time"

// Metadata keys the ingestion pipeline writes on every chunk.
// Caller supplied metadata is merged underneath these and never overrides them.
const (
	MetaDocID      = "doc_id"
	MetaChunkIndex = "chunk_index"
	MetaFilename   = "filename"
	MetaSourcePath = "source_path"
	MetaStartWord  = "start_word"
	MetaEndWord    = "end_word"
	MetaTitle      = "title"
)

// Document represents an ingested file.
// Its ID is derived from the raw bytes, never from the filename.
type Document struct {
	// ID is the content-addressed identifier (see IdentifyDocument).
	ID string

	// Filename is the name the document was uploaded under.
	Filename string

	// SourcePath is where the file was read from, if known.
	SourcePath string

	// Title is an optional human-readable title found during extraction.
	Title string

	// Content is the extracted text before chunking.
	Content string

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chars returns the extracted character count.
func (d Document) Chars() int {
	return len([]rune(d.Content))
}

// Chunk is a window of words taken from a document.
// Chunks are immutable and only removed with their whole document.
type Chunk struct {
	// ID is "{doc_id}_chunk_{index}".
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Content is the window text, words joined by single spaces.
	Content string

	// StartWord and EndWord are the [start, end) word offsets into the source text.
	StartWord int
	EndWord   int

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// Metadata holds caller metadata merged with the pipeline keys.
	Metadata map[string]any
}

// IngestionReport summarises one Ingest call.
type IngestionReport struct {
	DocID         string `json:"doc_id"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	TotalChars    int    `json:"total_chars"`

	// AlreadyIndexed is true when chunks for this doc id were present before
	// the call. The chunks are still overwritten, so the call is idempotent.
	AlreadyIndexed bool `json:"already_indexed"`

	// StaleChunksRemoved counts chunks left over from an earlier, longer
	// ingestion of the same id that were deleted after the upsert.
	StaleChunksRemoved int `json:"stale_chunks_removed,omitempty"`
}

// DocumentSummary is one row of the document listing.
type DocumentSummary struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// SystemStats describes the current contents of the vector index.
type SystemStats struct {
	TotalChunks     int   `json:"total_chunks"`
	UniqueDocuments int   `json:"unique_documents"`
	DBSizeBytes     int64 `json:"db_size_bytes"`
}
