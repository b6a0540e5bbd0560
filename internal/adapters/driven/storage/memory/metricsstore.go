package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure MetricsStore implements the interface.
var _ driven.MetricsStore = (*MetricsStore)(nil)

// MetricsStore keeps the metrics log in memory. Values are deep-copied
// through JSON so callers never share state with the store.
type MetricsStore struct {
	mu  sync.Mutex
	log domain.MetricsLog
}

// NewMetricsStore creates an empty in-memory metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{log: domain.MetricsLog{Queries: []domain.QueryRecord{}}}
}

// Load returns a copy of the log.
func (s *MetricsStore) Load(_ context.Context) (*domain.MetricsLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(&s.log)
}

// Update applies fn to a copy and keeps it only if fn succeeds.
func (s *MetricsStore) Update(_ context.Context, fn func(log *domain.MetricsLog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := clone(&s.log)
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	s.log = *next
	return nil
}

func clone(log *domain.MetricsLog) (*domain.MetricsLog, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	var out domain.MetricsLog
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out.Queries == nil {
		out.Queries = []domain.QueryRecord{}
	}
	return &out, nil
}
