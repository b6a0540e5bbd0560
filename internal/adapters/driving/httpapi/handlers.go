package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question      string            `json:"question" binding:"required"`
	TopK          int               `json:"top_k"`
	ReturnSources *bool             `json:"return_sources"`
	Filter        map[string]string `json:"filter"`
}

// QueryResponse is the answer to POST /query. Times are in seconds.
type QueryResponse struct {
	Answer         string             `json:"answer"`
	Sources        []domain.SourceRef `json:"sources"`
	NumChunks      int                `json:"num_chunks"`
	AvgScore       *float64           `json:"avg_score"`
	Sanitized      bool               `json:"sanitized"`
	RetrievalTime  float64            `json:"retrieval_time"`
	GenerationTime float64            `json:"generation_time"`
	TotalTime      float64            `json:"total_time"`
}

// RetrieveRequest is the body of POST /retrieve.
type RetrieveRequest struct {
	Question string            `json:"question" binding:"required"`
	K        int               `json:"k"`
	Filter   map[string]string `json:"filter"`
}

// RetrievedChunk is one hit in the POST /retrieve response.
type RetrievedChunk struct {
	ChunkID    string         `json:"chunk_id"`
	DocID      string         `json:"doc_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// UploadResponse is the answer to POST /upload.
type UploadResponse struct {
	domain.IngestionReport
	Message string `json:"message"`
}

// defaultRetrieveK applies to POST /retrieve without k.
const defaultRetrieveK = 5

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "docqa API",
		"endpoints": gin.H{
			"/health":             "Health check",
			"/stats":              "Index statistics",
			"/documents":          "List documents",
			"/upload":             "POST - upload and index a document",
			"/query":              "POST - ask a question",
			"/retrieve":           "POST - similarity search without generation",
			"/documents/{id}":     "DELETE - remove a document",
			"/metrics":            "GET report, DELETE to clear",
			"/metrics/prometheus": "Prometheus exposition",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.ports.Ingest.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"database": gin.H{
			"connected": true,
			"chunks":    stats.TotalChunks,
			"documents": stats.UniqueDocuments,
		},
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.ports.Ingest.RefreshStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.ports.Ingest.ListDocuments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// handleUpload indexes the multipart "file" field. An optional "metadata"
// field holds a JSON object merged into every chunk's metadata.
func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file uploaded")
		return
	}
	if !s.ports.Ingest.Supports(header.Filename) {
		writeError(c, domain.NewOpError("ingest", header.Filename, domain.ErrUnsupportedFormat,
			errors.New("supported formats: .pdf, .txt, .md")))
		return
	}

	var extra map[string]any
	if raw := strings.TrimSpace(c.PostForm("metadata")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			badRequest(c, "metadata must be a JSON object")
			return
		}
	}

	f, err := header.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	report, err := s.ports.Ingest.Ingest(c.Request.Context(), data, header.Filename, extra)
	if err != nil {
		writeError(c, err)
		return
	}

	message := "document indexed"
	if report.AlreadyIndexed {
		message = "document already indexed, chunks refreshed"
	}
	c.JSON(http.StatusOK, UploadResponse{IngestionReport: *report, Message: message})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	deleted, err := s.ports.Ingest.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		writeError(c, domain.NewOpError("delete", id, domain.ErrNotFound, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted", "doc_id": id})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "question is required")
		return
	}

	includeSources := req.ReturnSources == nil || *req.ReturnSources
	answer, err := s.ports.Query.Ask(c.Request.Context(), req.Question, domain.AskOptions{
		TopK:           req.TopK,
		Filter:         req.Filter,
		IncludeSources: includeSources,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	c.JSON(http.StatusOK, QueryResponse{
		Answer:         answer.Text,
		Sources:        sources,
		NumChunks:      answer.NumChunks,
		AvgScore:       answer.AvgScore,
		Sanitized:      answer.Sanitized,
		RetrievalTime:  answer.Timings.Retrieval.Seconds(),
		GenerationTime: answer.Timings.Generation.Seconds(),
		TotalTime:      answer.Timings.Total.Seconds(),
	})
}

func (s *Server) handleRetrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "question is required")
		return
	}
	k := req.K
	if k == 0 {
		k = defaultRetrieveK
	}

	chunks, err := s.ports.Query.Retrieve(c.Request.Context(), req.Question, k, req.Filter)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]RetrievedChunk, len(chunks))
	for i, ch := range chunks {
		out[i] = RetrievedChunk{
			ChunkID:    ch.ChunkID,
			DocID:      ch.DocumentID,
			ChunkIndex: ch.Index,
			Content:    ch.Content,
			Score:      ch.Score,
			Metadata:   ch.Metadata,
		}
	}
	c.JSON(http.StatusOK, gin.H{"chunks": out, "count": len(out)})
}

func (s *Server) handleMetricsReport(c *gin.Context) {
	if s.ports.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	report, err := s.ports.Metrics.Report(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleMetricsClear(c *gin.Context) {
	if s.ports.Metrics == nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := s.ports.Metrics.Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
