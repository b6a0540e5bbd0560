// Package jsonfile persists the query metrics log as a single JSON file.
//
// Writers take an advisory file lock, so several docqa processes (a CLI
// run next to the API server, say) can share one log without losing
// records. Writes go to a temporary file that is renamed into place.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure MetricsStore implements the interface.
var _ driven.MetricsStore = (*MetricsStore)(nil)

// DefaultFile is the metrics file name inside the data directory.
const DefaultFile = "metrics.json"

const lockRetryDelay = 25 * time.Millisecond

// MetricsStore is a JSON-file backed driven.MetricsStore.
type MetricsStore struct {
	mu   sync.Mutex // guards lock
	path string
	lock *flock.Flock
}

// NewMetricsStore creates a store writing to path. If path is empty,
// defaults to ~/.docqa/data/metrics.json.
func NewMetricsStore(path string) (*MetricsStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".docqa", "data", DefaultFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating metrics directory: %w", err)
	}
	return &MetricsStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the metrics file path.
func (s *MetricsStore) Path() string {
	return s.path
}

// Load reads the log under a shared lock.
func (s *MetricsStore) Load(ctx context.Context) (*domain.MetricsLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking metrics file: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("locking metrics file: %w", ctx.Err())
	}
	defer s.lock.Unlock() //nolint:errcheck // advisory lock

	return s.read()
}

// Update applies fn to the log under an exclusive lock.
func (s *MetricsStore) Update(ctx context.Context, fn func(log *domain.MetricsLog) error) error {
	// The flock handle is shared by every goroutine in this process.
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking metrics file: %w", err)
	}
	if !ok {
		return fmt.Errorf("locking metrics file: %w", ctx.Err())
	}
	defer s.lock.Unlock() //nolint:errcheck // advisory lock

	log, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(log); err != nil {
		return err
	}
	return s.write(log)
}

func (s *MetricsStore) read() (*domain.MetricsLog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &domain.MetricsLog{Queries: []domain.QueryRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metrics file: %w", err)
	}

	var log domain.MetricsLog
	if len(data) > 0 {
		if err := json.Unmarshal(data, &log); err != nil {
			return nil, fmt.Errorf("parsing metrics file %s: %w", s.path, err)
		}
	}
	if log.Queries == nil {
		log.Queries = []domain.QueryRecord{}
	}
	return &log, nil
}

func (s *MetricsStore) write(log *domain.MetricsLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".metrics-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing metrics file: %w", err)
	}
	return nil
}
