package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer  *domain.Answer
	chunks  []domain.RetrievedChunk
	err     error
	gotOpts domain.AskOptions
	gotK    int
}

func (m *mockQueryService) Ask(_ context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	m.gotOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Question: question, Text: domain.NoInformationAnswer}, nil
}

func (m *mockQueryService) Retrieve(
	_ context.Context, _ string, k int, _ map[string]string,
) ([]domain.RetrievedChunk, error) {
	m.gotK = k
	return m.chunks, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	deleted   bool
	refreshed bool
	stats     *domain.SystemStats
	docs      []domain.DocumentSummary
	err       error
}

func (m *mockIngestService) Ingest(
	_ context.Context, _ []byte, _ string, _ map[string]any,
) (*domain.IngestionReport, error) {
	return nil, m.err
}

func (m *mockIngestService) DeleteDocument(_ context.Context, _ string) (bool, error) {
	return m.deleted, m.err
}

func (m *mockIngestService) Stats(_ context.Context) (*domain.SystemStats, error) {
	return m.stats, m.err
}

func (m *mockIngestService) RefreshStats(_ context.Context) (*domain.SystemStats, error) {
	m.refreshed = true
	return m.stats, m.err
}

func (m *mockIngestService) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.docs, m.err
}

func (m *mockIngestService) Supports(_ string) bool {
	return true
}

// mockMetricsService is a mock implementation of driving.MetricsService.
type mockMetricsService struct {
	report *domain.MetricsReport
	err    error
}

func (m *mockMetricsService) Aggregate(_ context.Context) (*domain.AggregatedMetrics, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.report.Aggregated, nil
}

func (m *mockMetricsService) Report(_ context.Context) (*domain.MetricsReport, error) {
	return m.report, m.err
}

func (m *mockMetricsService) Clear(_ context.Context) error {
	return m.err
}
