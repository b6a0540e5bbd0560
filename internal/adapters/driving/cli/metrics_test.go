package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestMetricsCmd_ReportEmpty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "metrics")

	require.NoError(t, err)
	assert.Contains(t, out, "docqa metrics report")
	assert.Contains(t, out, "Queries (0)")
	assert.Contains(t, out, "No queries recorded")
}

func TestMetricsCmd_Report(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	score := 0.8
	ts.metrics.report = &domain.MetricsReport{
		GeneratedAt: time.Now(),
		SystemStats: &domain.SystemStatsSnapshot{Timestamp: time.Now(), TotalChunks: 10, UniqueDocuments: 2, DBSizeBytes: 2048},
		Aggregated: domain.AggregatedMetrics{
			TotalQueries: 2,
			TimeMetrics: &domain.TimeMetrics{
				TotalTime:      domain.MetricSummary{Mean: 1.5, Min: 1, Max: 2, Median: 2},
				RetrievalTime:  domain.MetricSummary{Mean: 0.01, Min: 0.01, Max: 0.01, Median: 0.01},
				GenerationTime: domain.MetricSummary{Mean: 1.49, Min: 0.99, Max: 1.99, Median: 1.99},
			},
			LengthMetrics: &domain.LengthMetrics{
				AnswerLength:   domain.MetricSummary{Mean: 40, Min: 30, Max: 50, Median: 50},
				QuestionLength: domain.MetricSummary{Mean: 12, Min: 10, Max: 14, Median: 14},
			},
			RetrievalMetrics: &domain.RetrievalMetrics{
				NumChunks:  domain.MetricSummary{Mean: 5, Min: 5, Max: 5, Median: 5},
				NumSources: domain.MetricSummary{Mean: 1, Min: 0, Max: 2, Median: 2},
			},
			Throughput: domain.Throughput{QueriesPerSecond: 0.67},
		},
		RecentQueries: []domain.QueryRecord{
			{Timestamp: time.Now(), Question: "first question", TotalTime: 1, NumChunks: 5, AvgScore: &score},
			{Timestamp: time.Now(), Question: "second question", TotalTime: 2, NumChunks: 5},
		},
	}

	out, err := execute(t, "metrics", "report")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunks: 10   Documents: 2   Size: 2.0 KiB")
	assert.Contains(t, out, "Queries (2)")
	assert.Contains(t, out, "Throughput: 0.67 queries/s")
	assert.Contains(t, out, "1.500 s")
	assert.Contains(t, out, "10.00 ms")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "first question")
	assert.Contains(t, out, "score 0.800")
	assert.Less(t, strings.Index(out, "second question"), strings.Index(out, "first question"))
}

func TestMetricsCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "metrics", "report", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"query_metrics"`)
	assert.Contains(t, out, `"total_queries": 0`)
}

func TestMetricsCmd_Clear(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "metrics", "clear")

	require.NoError(t, err)
	assert.True(t, ts.metrics.cleared)
	assert.Contains(t, out, "Metrics cleared.")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "250.00 ms", formatSeconds(0.25))
	assert.Equal(t, "0.00 ms", formatSeconds(0))
	assert.Equal(t, "1.000 s", formatSeconds(1))
	assert.Equal(t, "12.346 s", formatSeconds(12.3456))
}

func TestFormatScore(t *testing.T) {
	score := 0.12345
	assert.Equal(t, "N/A", formatScore(nil))
	assert.Equal(t, "0.123", formatScore(&score))
}
