package domain

import (
	"errors"
	"strings"
)

// Failure kinds. Callers match them with errors.Is.
var (
	// ErrInvalidConfiguration indicates bad chunking or service parameters.
	// It is fatal for the operation; the caller must fix the settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFormat indicates a document extension or content type
	// that no extractor handles. It only fails that one document.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidArgument indicates bad retrieval parameters such as k <= 0.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGenerationFailure indicates the generation backend failed.
	// The underlying cause is kept in the chain.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrIndexUnavailable indicates vector index connectivity or schema errors.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrEmbeddingFailure indicates the embedding service failed.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrExtractionFailure indicates a supported file could not be read.
	ErrExtractionFailure = errors.New("extraction failure")

	// Generation backend causes.

	// ErrAuthFailure indicates the backend rejected the credentials.
	ErrAuthFailure = errors.New("authentication failure")

	// ErrTimeout indicates the backend did not answer in time.
	ErrTimeout = errors.New("timeout")

	// ErrRateLimited indicates the backend rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// OpError is the structured failure returned across the core boundary.
// Kind is one of the sentinel errors above; Err is the underlying cause.
type OpError struct {
	Op     string
	Target string
	Kind   error
	Err    error
}

// NewOpError builds an OpError. err may be nil when the kind says it all.
func NewOpError(op, target string, kind, err error) *OpError {
	return &OpError{Op: op, Target: target, Kind: kind, Err: err}
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		b.WriteString(" ")
		b.WriteString(e.Target)
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// kindNames is ordered: the first match wins, so outer kinds come before
// the backend causes they may wrap.
var kindNames = []struct {
	err  error
	name string
}{
	{ErrInvalidConfiguration, "invalid_configuration"},
	{ErrUnsupportedFormat, "unsupported_format"},
	{ErrInvalidArgument, "invalid_argument"},
	{ErrGenerationFailure, "generation_failure"},
	{ErrIndexUnavailable, "index_unavailable"},
	{ErrEmbeddingFailure, "embedding_failure"},
	{ErrExtractionFailure, "extraction_failure"},
	{ErrAuthFailure, "auth_failure"},
	{ErrTimeout, "timeout"},
	{ErrRateLimited, "rate_limited"},
	{ErrNotFound, "not_found"},
	{ErrInvalidInput, "invalid_input"},
}

// KindOf returns a stable kind string for err, or "internal" when no
// known kind is in its chain. KindOf(nil) is "".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
