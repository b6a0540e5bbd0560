package generation

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/docqa/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Retrying implements the interface.
var _ driven.GenerationBackend = (*Retrying)(nil)

// DefaultRetryBase is the first backoff delay.
const DefaultRetryBase = 500 * time.Millisecond

// Retrying repeats failed Generate calls that are worth repeating (rate
// limits, timeouts, 5xx) up to a fixed count with jittered exponential
// backoff. Auth failures and other client errors return immediately.
type Retrying struct {
	driven.GenerationBackend
	maxRetries uint64
	base       time.Duration
}

// WithRetry wraps backend. maxRetries <= 0 returns backend unchanged.
func WithRetry(backend driven.GenerationBackend, maxRetries int, base time.Duration) driven.GenerationBackend {
	if maxRetries <= 0 {
		return backend
	}
	if base <= 0 {
		base = DefaultRetryBase
	}
	return &Retrying{GenerationBackend: backend, maxRetries: uint64(maxRetries), base: base}
}

// Generate calls the wrapped backend, retrying retryable failures.
func (r *Retrying) Generate(ctx context.Context, req driven.GenerationRequest) (string, error) {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.WithJitter(r.base/5, retry.NewExponential(r.base)))

	var answer string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, err := r.GenerationBackend.Generate(ctx, req)
		if err == nil {
			answer = out
			return nil
		}
		if httpjson.Retryable(err) {
			logger.Warn("generation attempt %d failed, retrying: %v", attempt, err)
			return retry.RetryableError(err)
		}
		return err
	})
	return answer, err
}
