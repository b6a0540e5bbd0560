package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure MetricsCollector implements the interface.
var _ driving.MetricsService = (*MetricsCollector)(nil)

// NoQueriesMessage is reported by Aggregate for an empty log.
const NoQueriesMessage = "No queries recorded"

// MetricsCollector appends query records to the metrics log and computes
// statistics over them.
type MetricsCollector struct {
	store driven.MetricsStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewMetricsCollector creates a collector over store.
func NewMetricsCollector(store driven.MetricsStore) *MetricsCollector {
	return &MetricsCollector{store: store, now: time.Now}
}

// Record appends rec. Records are never modified once written.
func (m *MetricsCollector) Record(ctx context.Context, rec domain.QueryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Update(ctx, func(log *domain.MetricsLog) error {
		log.Queries = append(log.Queries, rec)
		return nil
	}); err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// RecordSystemStats replaces the stored snapshot.
func (m *MetricsCollector) RecordSystemStats(ctx context.Context, stats domain.SystemStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := &domain.SystemStatsSnapshot{
		Timestamp:       m.now().UTC(),
		TotalChunks:     stats.TotalChunks,
		UniqueDocuments: stats.UniqueDocuments,
		DBSizeBytes:     stats.DBSizeBytes,
	}
	if err := m.store.Update(ctx, func(log *domain.MetricsLog) error {
		log.SystemStats = snapshot
		return nil
	}); err != nil {
		return fmt.Errorf("record system stats: %w", err)
	}
	return nil
}

// Aggregate computes statistics over every recorded query and caches the
// result in the log.
func (m *MetricsCollector) Aggregate(ctx context.Context) (*domain.AggregatedMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var agg domain.AggregatedMetrics
	if err := m.store.Update(ctx, func(log *domain.MetricsLog) error {
		agg = Aggregate(log.Queries)
		cached := agg
		log.Aggregated = &cached
		return nil
	}); err != nil {
		return nil, fmt.Errorf("aggregate metrics: %w", err)
	}
	return &agg, nil
}

// Report returns the latest snapshot, the aggregate and the most recent queries.
func (m *MetricsCollector) Report(ctx context.Context) (*domain.MetricsReport, error) {
	agg, err := m.Aggregate(ctx)
	if err != nil {
		return nil, err
	}

	log, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}

	recent := log.Queries
	if len(recent) > domain.RecentQueryLimit {
		recent = recent[len(recent)-domain.RecentQueryLimit:]
	}
	return &domain.MetricsReport{
		GeneratedAt:   m.now().UTC(),
		SystemStats:   log.SystemStats,
		Aggregated:    *agg,
		RecentQueries: append([]domain.QueryRecord{}, recent...),
	}, nil
}

// Clear empties the log.
func (m *MetricsCollector) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Update(ctx, func(log *domain.MetricsLog) error {
		*log = domain.MetricsLog{Queries: []domain.QueryRecord{}}
		return nil
	}); err != nil {
		return fmt.Errorf("clear metrics: %w", err)
	}
	return nil
}

// Aggregate summarises records. With no records only TotalQueries and
// Message are set.
func Aggregate(records []domain.QueryRecord) domain.AggregatedMetrics {
	n := len(records)
	if n == 0 {
		return domain.AggregatedMetrics{Message: NoQueriesMessage}
	}

	var (
		total, retrieval, generation []float64
		answerLen, questionLen       []float64
		numChunks, numSources        []float64
		scores                       []float64
	)
	for _, r := range records {
		total = append(total, r.TotalTime)
		retrieval = append(retrieval, r.RetrievalTime)
		generation = append(generation, r.GenerationTime)
		answerLen = append(answerLen, float64(r.AnswerLength))
		questionLen = append(questionLen, float64(r.QuestionLength))
		numChunks = append(numChunks, float64(r.NumChunks))
		numSources = append(numSources, float64(r.NumSources))
		if r.AvgScore != nil {
			scores = append(scores, *r.AvgScore)
		}
	}

	agg := domain.AggregatedMetrics{
		TotalQueries: n,
		TimeMetrics: &domain.TimeMetrics{
			TotalTime:      summarize(total),
			RetrievalTime:  summarize(retrieval),
			GenerationTime: summarize(generation),
		},
		LengthMetrics: &domain.LengthMetrics{
			AnswerLength:   summarize(answerLen),
			QuestionLength: summarize(questionLen),
		},
		RetrievalMetrics: &domain.RetrievalMetrics{
			NumChunks:  summarize(numChunks),
			NumSources: summarize(numSources),
		},
	}
	if len(scores) > 0 {
		s := summarize(scores)
		agg.RetrievalMetrics.AvgScore = &s
	}

	var elapsed float64
	for _, t := range total {
		elapsed += t
	}
	if elapsed > 0 {
		agg.Throughput.QueriesPerSecond = float64(n) / elapsed
	}
	return agg
}

// summarize expects a non-empty series. The median is the element at n/2
// of the sorted series.
func summarize(values []float64) domain.MetricSummary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return domain.MetricSummary{
		Mean:   sum / float64(len(sorted)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: sorted[len(sorted)/2],
	}
}
