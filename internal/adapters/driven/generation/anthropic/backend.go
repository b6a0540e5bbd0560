// Package anthropic provides a remote generation backend using the
// Anthropic messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/generation"
	"github.com/custodia-labs/docqa/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.GenerationBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 500

	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic backend.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL.
	BaseURL string

	// Model is the model to use.
	Model string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxTokens bounds the answer length. The API requires it.
	MaxTokens int

	// Temperature is sent as-is, including zero.
	Temperature float64

	// RequestsPerSecond throttles requests when positive.
	RequestsPerSecond float64
}

// Backend generates answers using Anthropic.
type Backend struct {
	http        *httpjson.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewBackend creates a new Anthropic backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &Backend{
		http: &httpjson.Client{
			Provider: "anthropic",
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Headers: map[string]string{
				"x-api-key":         cfg.APIKey,
				"anthropic-version": anthropicVersion,
			},
			Limiter: httpjson.NewLimiter(cfg.RequestsPerSecond),
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends the instructions and context as the system prompt and
// the question as the only user message.
func (b *Backend) Generate(ctx context.Context, req driven.GenerationRequest) (string, error) {
	system, user := generation.Messages(req)
	temperature := b.temperature

	var resp messagesResponse
	err := b.http.Post(ctx, b.baseURL+"/v1/messages", messagesRequest{
		Model:       b.model,
		Messages:    []messagesMessage{{Role: "user", Content: user}},
		MaxTokens:   b.maxTokens,
		System:      system,
		Temperature: &temperature,
	}, &resp)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content returned (stop reason %q)", resp.StopReason)
	}
	return out.String(), nil
}

// ModelName returns the name of the model being used.
func (b *Backend) ModelName() string {
	return b.model
}

// Ping lists models, which validates the key without inference.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.http.Get(ctx, b.baseURL+"/v1/models", nil); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}
