package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/services"
)

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	problems    []string
	values      map[string]string
	setErr      error
	embedErr    error
	generateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"chunking.overlap", "chunking.window"}
}

func (m *mockSettingsService) Validate() []string {
	return m.problems
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.embedErr
}

func (m *mockSettingsService) ValidateGenerationConfig() error {
	return m.generateErr
}

// mockIngestService is a mock implementation of driving.IngestService.
// Document ids are derived from the content so identical files share one.
type mockIngestService struct {
	mu        sync.Mutex
	ingested  map[string]string
	extra     map[string]map[string]any
	deleted   []string
	missing   bool
	stats     *domain.SystemStats
	refreshes int
	docs      []domain.DocumentSummary
	failOn    string
	err       error
}

func newMockIngestService() *mockIngestService {
	return &mockIngestService{
		ingested: make(map[string]string),
		extra:    make(map[string]map[string]any),
	}
}

func (m *mockIngestService) Ingest(
	_ context.Context, raw []byte, filename string, extra map[string]any,
) (*domain.IngestionReport, error) {
	if filename == m.failOn {
		return nil, fmt.Errorf("%w: no text", domain.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := domain.IdentifyDocument(raw)
	_, seen := m.ingested[id]
	m.ingested[id] = filename
	m.extra[filename] = extra
	return &domain.IngestionReport{
		DocID:          id,
		Filename:       filename,
		ChunksCreated:  1,
		TotalChars:     len(raw),
		AlreadyIndexed: seen,
	}, nil
}

func (m *mockIngestService) DeleteDocument(_ context.Context, docID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, docID)
	return !m.missing, nil
}

func (m *mockIngestService) Stats(_ context.Context) (*domain.SystemStats, error) {
	return m.stats, m.err
}

func (m *mockIngestService) RefreshStats(_ context.Context) (*domain.SystemStats, error) {
	m.mu.Lock()
	m.refreshes++
	m.mu.Unlock()
	return m.stats, m.err
}

func (m *mockIngestService) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.docs, m.err
}

func (m *mockIngestService) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt", ".md":
		return true
	default:
		return false
	}
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer  *domain.Answer
	chunks  []domain.RetrievedChunk
	err     error
	gotOpts domain.AskOptions
	gotK    int
	gotF    map[string]string
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
	_ context.Context, _ string, k int, filter map[string]string,
) ([]domain.RetrievedChunk, error) {
	m.gotK = k
	m.gotF = filter
	return m.chunks, m.err
}

// mockMetricsService is a mock implementation of driving.MetricsService.
type mockMetricsService struct {
	report  *domain.MetricsReport
	cleared bool
	err     error
}

func (m *mockMetricsService) Aggregate(_ context.Context) (*domain.AggregatedMetrics, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.report.Aggregated, nil
}

func (m *mockMetricsService) Report(_ context.Context) (*domain.MetricsReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.MetricsReport{
			GeneratedAt: time.Now(),
			Aggregated:  domain.AggregatedMetrics{Message: services.NoQueriesMessage},
		}, nil
	}
	return m.report, nil
}

func (m *mockMetricsService) Clear(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	return nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings *mockSettingsService
	ingest   *mockIngestService
	query    *mockQueryService
	metrics  *mockMetricsService
}

// setupTestServices installs mocks for every service, resets the command
// flags and returns a cleanup function restoring the previous state.
// Map flags are reset to empty maps because pflag merges into the existing
// map once a flag has been set.
func setupTestServices() (*testServices, func()) {
	origSettings := settingsService
	origIngest := ingestService
	origQuery := queryService
	origMetrics := metricsService

	ts := &testServices{
		settings: newMockSettingsService(),
		ingest:   newMockIngestService(),
		query:    &mockQueryService{},
		metrics:  &mockMetricsService{},
	}
	settingsService = ts.settings
	ingestService = ts.ingest
	queryService = ts.query
	metricsService = ts.metrics
	resetFlags()

	return ts, func() {
		settingsService = origSettings
		ingestService = origIngest
		queryService = origQuery
		metricsService = origMetrics
		resetFlags()
	}
}

func resetFlags() {
	verbose = false
	ephemeral = false
	logLevel = ""
	mcpAddr = ""
	ingestMeta = map[string]string{}
	ingestWorkers = 4
	askTopK = 0
	askFilter = map[string]string{}
	askSources = false
	askJSON = false
	searchLimit = 5
	searchFilter = map[string]string{}
	searchJSON = false
	documentsJSON = false
	metricsJSON = false
	settingsPing = false
	watchSkipInitial = false
	watchDebounce = 500 * time.Millisecond
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func (m *mockIngestService) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ingested)
}

func (m *mockIngestService) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
