package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MetricsStore persists the metrics log. The whole log is read and
// rewritten on each change.
type MetricsStore interface {
	// Load returns the stored log, or an empty one if nothing was stored yet.
	Load(ctx context.Context) (*domain.MetricsLog, error)

	// Update loads the log, applies fn and writes it back while holding
	// an exclusive lock. Nothing is written if fn returns an error.
	Update(ctx context.Context, fn func(log *domain.MetricsLog) error) error
}
