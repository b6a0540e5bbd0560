package driven

import "context"

// GenerationBackend produces an answer grounded in the supplied context.
//
// Implementations enforce their own request timeout and bounded retry
// count. Failures should wrap domain.ErrAuthFailure, domain.ErrTimeout or
// domain.ErrRateLimited when the cause is known.
type GenerationBackend interface {
	// Generate returns the backend's answer text.
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerationRequest is the single input to a generation call.
type GenerationRequest struct {
	// System holds the fixed instructions.
	System string

	// Context is the assembled source blocks.
	Context string

	// Question is the user's question.
	Question string
}
