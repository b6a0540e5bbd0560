// Package openai provides a remote generation backend using the OpenAI
// chat completions API.
package openai

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
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 500
)

// Config holds configuration for the OpenAI backend.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL. Can point at any compatible API.
	BaseURL string

	// Model is the chat model to use.
	Model string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxTokens bounds the answer length.
	MaxTokens int

	// Temperature is sent as-is, including zero.
	Temperature float64

	// RequestsPerSecond throttles requests when positive.
	RequestsPerSecond float64
}

// Backend generates answers using OpenAI.
type Backend struct {
	http        *httpjson.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// NewBackend creates a new OpenAI backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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
			Provider: "openai",
			HTTP:     &http.Client{Timeout: cfg.Timeout},
			Headers:  map[string]string{"Authorization": "Bearer " + cfg.APIKey},
			Limiter:  httpjson.NewLimiter(cfg.RequestsPerSecond),
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends the instructions and context as the system message and
// the question as the user message.
func (b *Backend) Generate(ctx context.Context, req driven.GenerationRequest) (string, error) {
	system, user := generation.Messages(req)
	temperature := b.temperature

	var resp chatResponse
	err := b.http.Post(ctx, b.baseURL+"/chat/completions", chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   b.maxTokens,
		Temperature: &temperature,
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the name of the model being used.
func (b *Backend) ModelName() string {
	return b.model
}

// Ping checks the /models endpoint, which validates the key without inference.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.http.Get(ctx, b.baseURL+"/models", nil); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}
