// Package httpjson is the JSON-over-HTTP plumbing shared by the provider
// adapters (embedding, generation, qdrant). It maps transport failures and
// HTTP status codes onto the domain error kinds.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// Client sends JSON requests for one provider.
type Client struct {
	// Provider prefixes error messages, e.g. "openai".
	Provider string

	// HTTP is the underlying client; its Timeout is the request timeout.
	HTTP *http.Client

	// Headers are set on every request.
	Headers map[string]string

	// Limiter throttles requests when set.
	Limiter *rate.Limiter
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider string
	Status   int
	Body     string
	kind     error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

// Unwrap returns the domain kind matching the status, if any.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// Do sends method to url with in encoded as JSON (nil for no body) and
// decodes a 2xx response into out (nil to discard).
func (c *Client) Do(ctx context.Context, method, url string, in, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: wait for rate limiter: %w", c.Provider, err)
		}
	}

	body := io.Reader(http.NoBody)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.Provider, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return ClassifyTransport(c.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ClassifyStatus(c.Provider, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.Provider, err)
	}
	return nil
}

// Post is Do with http.MethodPost.
func (c *Client) Post(ctx context.Context, url string, in, out any) error {
	return c.Do(ctx, http.MethodPost, url, in, out)
}

// Get is Do with http.MethodGet and no request body.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.Do(ctx, http.MethodGet, url, nil, out)
}

// ClassifyStatus builds a StatusError whose kind reflects the status code.
func ClassifyStatus(provider string, status int, body string) error {
	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domain.ErrAuthFailure
	case status == http.StatusTooManyRequests:
		kind = domain.ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = domain.ErrTimeout
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	}
	return &StatusError{Provider: provider, Status: status, Body: body, kind: kind}
}

// ClassifyTransport marks deadline and network timeouts as domain.ErrTimeout.
func ClassifyTransport(provider string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%s: send request: %w", provider, err)
}

// Retryable reports whether a failed call is worth repeating: rate limits,
// timeouts, 5xx responses and transport errors are, auth and other 4xx are not.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrTimeout) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return !errors.Is(err, domain.ErrAuthFailure)
}

// NewLimiter returns a limiter allowing rps requests per second with a
// burst of one, or nil when rps <= 0.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
