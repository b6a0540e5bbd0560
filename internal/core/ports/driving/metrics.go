package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MetricsService exposes the query metrics log.
type MetricsService interface {
	// Aggregate computes statistics over every recorded query.
	Aggregate(ctx context.Context) (*domain.AggregatedMetrics, error)

	// Report returns the snapshot, aggregate and the most recent queries.
	Report(ctx context.Context) (*domain.MetricsReport, error)

	// Clear empties the log.
	Clear(ctx context.Context) error
}
