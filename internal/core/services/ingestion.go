package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/chunker"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestService = (*IngestionService)(nil)

// ListLimit is the peek size used to list documents.
const ListLimit = 10000

// Observer status values.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusNoContext   = "no_context"
	StatusNotFound    = "not_found"
	StatusUnsupported = "unsupported"
)

// IngestionService is the write path: extract, chunk, embed and index,
// plus deletion and index statistics.
type IngestionService struct {
	extractor driven.Extractor
	chunker   *chunker.Processor
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	locks     *KeyedMutex

	metrics     *MetricsCollector
	observer    driven.Observer
	statsSample int
	now         func() time.Time
}

// NewIngestionService creates the ingestion service. Every collaborator is
// required.
func NewIngestionService(
	extractor driven.Extractor,
	processor *chunker.Processor,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
) (*IngestionService, error) {
	if extractor == nil || processor == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: ingestion needs an extractor, chunker, embedder and index",
			domain.ErrInvalidConfiguration)
	}
	return &IngestionService{
		extractor:   extractor,
		chunker:     processor,
		embedder:    embedder,
		index:       index,
		locks:       NewKeyedMutex(),
		statsSample: domain.DefaultAppSettings().Retrieval.StatsSample,
		now:         time.Now,
	}, nil
}

// SetMetrics makes Stats record a snapshot in the metrics log.
func (s *IngestionService) SetMetrics(m *MetricsCollector) {
	s.metrics = m
}

// SetObserver sets the telemetry observer.
func (s *IngestionService) SetObserver(o driven.Observer) {
	s.observer = o
}

// SetStatsSample sets the peek size used to approximate the document count.
func (s *IngestionService) SetStatsSample(n int) {
	if n > 0 {
		s.statsSample = n
	}
}

// Supports reports whether filename has an extractable extension.
func (s *IngestionService) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range s.extractor.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// Ingest indexes one file. Byte-identical content always maps to the same
// document and chunk ids, so ingesting it again overwrites rather than
// duplicates. Ingestion of the same document is serialised. Once the upsert
// succeeds the document is indexed: a failure to remove chunks left over from
// an earlier ingestion is logged and reported as zero StaleChunksRemoved.
func (s *IngestionService) Ingest(
	ctx context.Context, raw []byte, filename string, extra map[string]any,
) (report *domain.IngestionReport, err error) {
	start := time.Now()
	logger.Section("Ingest")
	logger.Debug("File: %s (%d bytes)", filename, len(raw))

	chunks := 0
	defer func() {
		s.observeIngest(err, chunks, time.Since(start))
	}()

	if !s.Supports(filename) {
		return nil, domain.NewOpError("ingest", filename, domain.ErrUnsupportedFormat,
			fmt.Errorf("extension %q is not one of %v", filepath.Ext(filename), s.extractor.Extensions()))
	}

	docID := domain.IdentifyDocument(raw)
	unlock := s.locks.Lock(docID)
	defer unlock()

	extraction, err := s.extractor.Extract(ctx, raw, filename)
	if err != nil {
		kind := domain.ErrExtractionFailure
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			kind = domain.ErrUnsupportedFormat
		}
		return nil, domain.NewOpError("extract", filename, kind, err)
	}

	doc := &domain.Document{
		ID:         docID,
		Filename:   filepath.Base(filename),
		SourcePath: filename,
		Title:      extraction.Title,
		Content:    extraction.Text,
		CreatedAt:  s.now().UTC(),
	}
	if sp, ok := extra[domain.MetaSourcePath].(string); ok && sp != "" {
		doc.SourcePath = sp
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.NewOpError("ingest", filename, domain.ErrInvalidInput,
			errors.New("document contains no text"))
	}

	docChunks, err := s.chunker.Process(doc, extra)
	if err != nil {
		return nil, domain.NewOpError("chunk", docID, domain.ErrInvalidConfiguration, err)
	}
	logger.Debug("Document %s: %d chars, %d chunks", docID, doc.Chars(), len(docChunks))

	existing, err := s.index.IDsWhere(ctx, domain.MetaDocID, docID)
	if err != nil {
		return nil, domain.NewOpError("lookup", docID, domain.ErrIndexUnavailable, err)
	}

	texts := make([]string, len(docChunks))
	for i, c := range docChunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Embedding %s failed: %v", docID, err)
		return nil, domain.NewOpError("embed", docID, domain.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(docChunks) {
		return nil, domain.NewOpError("embed", docID, domain.ErrEmbeddingFailure,
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(docChunks)))
	}

	records := make([]driven.VectorRecord, len(docChunks))
	fresh := make(map[string]struct{}, len(docChunks))
	for i := range docChunks {
		docChunks[i].Embedding = vectors[i]
		records[i] = driven.VectorRecord{
			ID:       docChunks[i].ID,
			Vector:   vectors[i],
			Text:     docChunks[i].Content,
			Metadata: docChunks[i].Metadata,
		}
		fresh[docChunks[i].ID] = struct{}{}
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		logger.Warn("Indexing %s failed: %v", docID, err)
		return nil, domain.NewOpError("upsert", docID, domain.ErrIndexUnavailable, err)
	}

	var stale []string
	for _, id := range existing {
		if _, ok := fresh[id]; !ok {
			stale = append(stale, id)
		}
	}
	removed := 0
	if len(stale) > 0 {
		if err := s.index.Delete(ctx, stale); err != nil {
			logger.Warn("Removing %d stale chunks of %s failed: %v", len(stale), docID, err)
		} else {
			removed = len(stale)
			logger.Debug("Removed %d stale chunks of %s", removed, docID)
		}
	}

	chunks = len(records)
	report = &domain.IngestionReport{
		DocID:              docID,
		Filename:           doc.Filename,
		ChunksCreated:      len(records),
		TotalChars:         doc.Chars(),
		AlreadyIndexed:     len(existing) > 0,
		StaleChunksRemoved: removed,
	}
	logger.Info("Ingested %s as %s: %d chunks in %v", doc.Filename, docID, len(records), time.Since(start))
	return report, nil
}

// DeleteDocument removes every chunk of docID in one batch. A document with
// no chunks is not an error: it returns false.
func (s *IngestionService) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return false, domain.NewOpError("delete", "", domain.ErrInvalidArgument, errors.New("document id is empty"))
	}

	unlock := s.locks.Lock(docID)
	defer unlock()

	ids, err := s.index.IDsWhere(ctx, domain.MetaDocID, docID)
	if err != nil {
		s.observeDelete(StatusError, 0)
		return false, domain.NewOpError("lookup", docID, domain.ErrIndexUnavailable, err)
	}
	if len(ids) == 0 {
		logger.Debug("Delete %s: no chunks found", docID)
		s.observeDelete(StatusNotFound, 0)
		return false, nil
	}

	if err := s.index.Delete(ctx, ids); err != nil {
		s.observeDelete(StatusError, 0)
		return false, domain.NewOpError("delete", docID, domain.ErrIndexUnavailable, err)
	}

	logger.Info("Deleted %s (%d chunks)", docID, len(ids))
	s.observeDelete(StatusOK, len(ids))
	return true, nil
}

// Stats counts chunks exactly and documents approximately, from a peek of
// the index. It only reads; see RefreshStats.
func (s *IngestionService) Stats(ctx context.Context) (*domain.SystemStats, error) {
	total, err := s.index.Count(ctx)
	if err != nil {
		return nil, domain.NewOpError("count", "", domain.ErrIndexUnavailable, err)
	}

	sample, err := s.index.Peek(ctx, s.statsSample)
	if err != nil {
		return nil, domain.NewOpError("peek", "", domain.ErrIndexUnavailable, err)
	}
	docs := make(map[string]struct{})
	for _, r := range sample {
		if id, ok := r.Metadata[domain.MetaDocID].(string); ok {
			docs[id] = struct{}{}
		}
	}

	stats := &domain.SystemStats{
		TotalChunks:     total,
		UniqueDocuments: len(docs),
	}
	if sr, ok := s.index.(driven.SizeReporter); ok {
		size, err := sr.SizeBytes(ctx)
		if err != nil {
			logger.Warn("Index size unavailable: %v", err)
		} else {
			stats.DBSizeBytes = size
		}
	}
	return stats, nil
}

// RefreshStats is Stats followed by recording the result as the metrics
// log's system snapshot. A recording failure is logged, not returned.
func (s *IngestionService) RefreshStats(ctx context.Context) (*domain.SystemStats, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		if err := s.metrics.RecordSystemStats(ctx, *stats); err != nil {
			logger.Warn("Recording system stats failed: %v", err)
		}
	}
	return stats, nil
}

// ListDocuments groups a peek of the index by document, in first-seen order.
func (s *IngestionService) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	sample, err := s.index.Peek(ctx, ListLimit)
	if err != nil {
		return nil, domain.NewOpError("peek", "", domain.ErrIndexUnavailable, err)
	}

	byID := make(map[string]int)
	docs := []domain.DocumentSummary{}
	for _, r := range sample {
		id, _ := r.Metadata[domain.MetaDocID].(string)
		if id == "" {
			continue
		}
		i, ok := byID[id]
		if !ok {
			name, _ := r.Metadata[domain.MetaFilename].(string)
			docs = append(docs, domain.DocumentSummary{DocID: id, Filename: name})
			i = len(docs) - 1
			byID[id] = i
		}
		docs[i].ChunkCount++
	}
	return docs, nil
}

func (s *IngestionService) observeIngest(err error, chunks int, elapsed time.Duration) {
	if s.observer == nil {
		return
	}
	status := StatusOK
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		status = StatusUnsupported
	case err != nil:
		status = StatusError
	}
	s.observer.IngestFinished(status, chunks, elapsed)
}

func (s *IngestionService) observeDelete(status string, removed int) {
	if s.observer != nil {
		s.observer.DeleteFinished(status, removed)
	}
}
