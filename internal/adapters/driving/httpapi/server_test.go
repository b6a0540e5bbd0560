package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/chunker"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct {
	answer string
	err    error
}

func (b *stubBackend) Generate(context.Context, driven.GenerationRequest) (string, error) {
	return b.answer, b.err
}
func (b *stubBackend) ModelName() string          { return "stub" }
func (b *stubBackend) Ping(context.Context) error { return nil }
func (b *stubBackend) Close() error               { return nil }

// failingIngest fails every call with err.
type failingIngest struct {
	err error
}

func (f *failingIngest) Ingest(context.Context, []byte, string, map[string]any) (*domain.IngestionReport, error) {
	return nil, f.err
}
func (f *failingIngest) DeleteDocument(context.Context, string) (bool, error) { return false, f.err }
func (f *failingIngest) Stats(context.Context) (*domain.SystemStats, error)   { return nil, f.err }
func (f *failingIngest) RefreshStats(context.Context) (*domain.SystemStats, error) {
	return nil, f.err
}
func (f *failingIngest) ListDocuments(context.Context) ([]domain.DocumentSummary, error) {
	return nil, f.err
}
func (f *failingIngest) Supports(string) bool { return true }

type testAPI struct {
	handler http.Handler
	ingest  *services.IngestionService
	metrics *services.MetricsCollector
}

func newTestAPI(t *testing.T, backend driven.GenerationBackend) *testAPI {
	t.Helper()
	processor, err := chunker.New(chunker.WithWindow(20), chunker.WithOverlap(5))
	require.NoError(t, err)

	embedder := hashing.NewEmbeddingService(64)
	index := memory.NewVectorIndex()
	ingest, err := services.NewIngestionService(extractors.NewDefaultRegistry(), processor, embedder, index)
	require.NoError(t, err)

	collector := services.NewMetricsCollector(memory.NewMetricsStore())
	ingest.SetMetrics(collector)
	query := services.NewQueryService(
		services.NewRetriever(embedder, index),
		services.NewGenerator(backend, nil),
		collector,
	)

	tm := telemetry.New()
	ingest.SetObserver(tm)
	query.SetObserver(tm)

	server, err := NewServer(&Ports{Query: query, Ingest: ingest, Metrics: collector}, tm)
	require.NoError(t, err)
	return &testAPI{handler: server.Handler(), ingest: ingest, metrics: collector}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename, content, metadata string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if metadata != "" {
		require.NoError(t, mw.WriteField("metadata", metadata))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{}, nil)
	assert.ErrorIs(t, err, ErrMissingQueryService)

	_, err = NewServer(&Ports{Query: services.NewQueryService(nil, nil, nil)}, nil)
	assert.ErrorIs(t, err, ErrMissingIngestService)
}

func TestUpload_IndexesDocument(t *testing.T) {
	api := newTestAPI(t, &stubBackend{answer: "ok"})
	content := "# Guide\n\nThe deploy command ships the build to production servers every night."

	w := api.do(t, uploadRequest(t, "guide.md", content, `{"team":"platform"}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.IdentifyDocument([]byte(content)), resp.DocID)
	assert.Equal(t, "guide.md", resp.Filename)
	assert.Equal(t, 1, resp.ChunksCreated)
	assert.Equal(t, "document indexed", resp.Message)

	w = api.do(t, uploadRequest(t, "guide.md", content, ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.AlreadyIndexed)
}

func TestUpload_Errors(t *testing.T) {
	api := newTestAPI(t, &stubBackend{})

	tests := []struct {
		name     string
		req      *http.Request
		wantKind string
	}{
		{
			name:     "unsupported extension",
			req:      uploadRequest(t, "image.png", "binary", ""),
			wantKind: "unsupported_format",
		},
		{
			name:     "bad metadata",
			req:      uploadRequest(t, "notes.txt", "some words", "[1,2]"),
			wantKind: "invalid_argument",
		},
		{
			name:     "missing file",
			req:      jsonRequest(http.MethodPost, "/upload", "{}"),
			wantKind: "invalid_argument",
		},
		{
			name:     "empty document",
			req:      uploadRequest(t, "empty.txt", "   ", ""),
			wantKind: "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantKind, decodeError(t, w).Kind)
		})
	}
}

func TestQuery_AnswersWithSources(t *testing.T) {
	api := newTestAPI(t, &stubBackend{answer: "It ships nightly ✅"})
	require.Equal(t, http.StatusOK,
		api.do(t, uploadRequest(t, "ops.txt", "deploy ships the build nightly", "")).Code)

	w := api.do(t, jsonRequest(http.MethodPost, "/query", `{"question":"when does deploy ship?","top_k":3}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "It ships nightly", resp.Answer)
	assert.True(t, resp.Sanitized)
	assert.Equal(t, 1, resp.NumChunks)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "ops.txt", resp.Sources[0].Filename)
	require.NotNil(t, resp.AvgScore)

	agg, err := api.metrics.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, agg.TotalQueries)
}

func TestQuery_WithoutSources(t *testing.T) {
	api := newTestAPI(t, &stubBackend{answer: "yes"})
	api.do(t, uploadRequest(t, "a.txt", "alpha beta gamma", ""))

	w := api.do(t, jsonRequest(http.MethodPost, "/query", `{"question":"alpha?","return_sources":false}`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 1, resp.NumChunks)
}

func TestQuery_EmptyIndex(t *testing.T) {
	backend := &stubBackend{err: errors.New("must not be called")}
	api := newTestAPI(t, backend)

	w := api.do(t, jsonRequest(http.MethodPost, "/query", `{"question":"anything?"}`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.NoInformationAnswer, resp.Answer)
	assert.Nil(t, resp.AvgScore)
}

func TestQuery_Errors(t *testing.T) {
	t.Run("missing question", func(t *testing.T) {
		api := newTestAPI(t, &stubBackend{})
		w := api.do(t, jsonRequest(http.MethodPost, "/query", `{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative top_k", func(t *testing.T) {
		api := newTestAPI(t, &stubBackend{})
		w := api.do(t, jsonRequest(http.MethodPost, "/query", `{"question":"q","top_k":-1}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_argument", decodeError(t, w).Kind)
	})

	t.Run("generation failure", func(t *testing.T) {
		api := newTestAPI(t, &stubBackend{err: domain.ErrRateLimited})
		api.do(t, uploadRequest(t, "a.txt", "alpha beta gamma", ""))

		w := api.do(t, jsonRequest(http.MethodPost, "/query", `{"question":"alpha?"}`))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "generation_failure", decodeError(t, w).Kind)

		agg, err := api.metrics.Aggregate(context.Background())
		require.NoError(t, err)
		assert.Zero(t, agg.TotalQueries)
	})
}

func TestRetrieve(t *testing.T) {
	api := newTestAPI(t, &stubBackend{})
	api.do(t, uploadRequest(t, "a.txt", "alpha beta gamma", `{"team":"red"}`))
	api.do(t, uploadRequest(t, "b.txt", "alpha delta epsilon", `{"team":"blue"}`))

	w := api.do(t, jsonRequest(http.MethodPost, "/retrieve", `{"question":"alpha","k":5,"filter":{"team":"blue"}}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Chunks []RetrievedChunk `json:"chunks"`
		Count  int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "b.txt", resp.Chunks[0].Metadata["filename"])
}

func TestDocumentsAndDelete(t *testing.T) {
	api := newTestAPI(t, &stubBackend{})
	content := "alpha beta gamma"
	api.do(t, uploadRequest(t, "a.txt", content, ""))
	docID := domain.IdentifyDocument([]byte(content))

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Documents []domain.DocumentSummary `json:"documents"`
		Count     int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, docID, list.Documents[0].DocID)

	w = api.do(t, httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, httptest.NewRequest(http.MethodDelete, "/delete/"+docID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Kind)
}

func TestHealthAndStats(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		api := newTestAPI(t, &stubBackend{})
		api.do(t, uploadRequest(t, "a.txt", "alpha beta gamma", ""))

		w := api.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"healthy"`)
		assert.Contains(t, w.Body.String(), `"chunks":1`)

		report, err := api.metrics.Report(context.Background())
		require.NoError(t, err)
		assert.Nil(t, report.SystemStats, "health checks leave the metrics log alone")

		w = api.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var stats domain.SystemStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.UniqueDocuments)

		report, err = api.metrics.Report(context.Background())
		require.NoError(t, err)
		require.NotNil(t, report.SystemStats)
		assert.Equal(t, 1, report.SystemStats.TotalChunks)
	})

	t.Run("unhealthy", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Query:  services.NewQueryService(nil, nil, nil),
			Ingest: &failingIngest{err: domain.ErrIndexUnavailable},
		}, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)

		w = httptest.NewRecorder()
		server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestMetricsEndpoints(t *testing.T) {
	api := newTestAPI(t, &stubBackend{answer: "fine"})
	api.do(t, uploadRequest(t, "a.txt", "alpha beta gamma", ""))
	api.do(t, jsonRequest(http.MethodPost, "/query", `{"question":"alpha?"}`))

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var report domain.MetricsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Aggregated.TotalQueries)
	assert.Len(t, report.RecentQueries, 1)

	w = api.do(t, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docqa_queries_total")
	assert.Contains(t, w.Body.String(), "docqa_http_requests_total")

	w = api.do(t, httptest.NewRequest(http.MethodDelete, "/metrics", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	agg, err := api.metrics.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, agg.TotalQueries)
	assert.Equal(t, services.NoQueriesMessage, agg.Message)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, &stubBackend{})
	w := api.do(t, httptest.NewRequest(http.MethodOptions, "/query", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{domain.ErrUnsupportedFormat, http.StatusBadRequest},
		{domain.ErrInvalidConfiguration, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.NewOpError("generate", "m", domain.ErrGenerationFailure, domain.ErrTimeout), http.StatusBadGateway},
		{domain.ErrIndexUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(domain.KindOf(tt.err)), tt.err.Error())
	}
}
