package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryService is the read path.
type QueryService interface {
	// Ask retrieves context for question, generates an answer and records metrics.
	Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error)

	// Retrieve returns up to k chunks for question, best first.
	Retrieve(ctx context.Context, question string, k int, filter map[string]string) ([]domain.RetrievedChunk, error)
}
