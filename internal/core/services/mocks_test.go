package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// failingEmbedder returns err from every call.
type failingEmbedder struct {
	err error
}

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, f.err }
func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}
func (f *failingEmbedder) Dimensions() int            { return 8 }
func (f *failingEmbedder) ModelName() string          { return "failing" }
func (f *failingEmbedder) Ping(context.Context) error { return f.err }
func (f *failingEmbedder) Close() error               { return nil }

// brokenIndex fails every operation with ErrIndexUnavailable-like errors.
type brokenIndex struct{}

var errIndexDown = errors.New("connection refused")

func (brokenIndex) Upsert(context.Context, []driven.VectorRecord) error { return errIndexDown }
func (brokenIndex) Query(context.Context, []float32, int, map[string]string) ([]driven.VectorHit, error) {
	return nil, errIndexDown
}
func (brokenIndex) Delete(context.Context, []string) error { return errIndexDown }
func (brokenIndex) IDsWhere(context.Context, string, string) ([]string, error) {
	return nil, errIndexDown
}
func (brokenIndex) Count(context.Context) (int, error) { return 0, errIndexDown }
func (brokenIndex) Peek(context.Context, int) ([]driven.VectorRecord, error) {
	return nil, errIndexDown
}
func (brokenIndex) Close() error { return nil }

// stubIndex returns fixed hits from Query and records the arguments.
type stubIndex struct {
	brokenIndex
	hits      []driven.VectorHit
	gotK      int
	gotFilter map[string]string
}

func (s *stubIndex) Query(_ context.Context, _ []float32, k int, filter map[string]string) ([]driven.VectorHit, error) {
	s.gotK = k
	s.gotFilter = filter
	return s.hits, nil
}

// staleDeleteIndex is a working in-memory index whose Delete always fails.
type staleDeleteIndex struct {
	*memory.VectorIndex
}

func (staleDeleteIndex) Delete(context.Context, []string) error { return errIndexDown }

// mockBackend is a scripted generation backend.
type mockBackend struct {
	mu       sync.Mutex
	answer   string
	err      error
	calls    int
	requests []driven.GenerationRequest
}

func (m *mockBackend) Generate(_ context.Context, req driven.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.requests = append(m.requests, req)
	return m.answer, m.err
}
func (m *mockBackend) ModelName() string          { return "mock-model" }
func (m *mockBackend) Ping(context.Context) error { return nil }
func (m *mockBackend) Close() error               { return nil }

// mockPrompts serves one prompt or an error.
type mockPrompts struct {
	prompt string
	err    error
}

func (m *mockPrompts) Load(string) (string, error) { return m.prompt, m.err }
func (m *mockPrompts) Reload()                     {}

// recordingObserver keeps every observed status.
type recordingObserver struct {
	mu      sync.Mutex
	ingest  []string
	deletes []string
	queries []string
}

func (r *recordingObserver) IngestFinished(status string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingest = append(r.ingest, status)
}

func (r *recordingObserver) DeleteFinished(status string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, status)
}

func (r *recordingObserver) QueryFinished(status string, _ int, _, _, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, status)
}

// failingMetricsStore fails every write.
type failingMetricsStore struct{}

func (failingMetricsStore) Load(context.Context) (*domain.MetricsLog, error) {
	return &domain.MetricsLog{}, nil
}

func (failingMetricsStore) Update(context.Context, func(*domain.MetricsLog) error) error {
	return errors.New("disk full")
}
