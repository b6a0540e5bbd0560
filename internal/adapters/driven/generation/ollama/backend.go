// Package ollama provides the local generation backend using Ollama.
package ollama

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
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "llama3.2"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 500
)

// Config holds configuration for the Ollama backend.
type Config struct {
	// BaseURL is the Ollama API base URL.
	BaseURL string

	// Model is the local model to use.
	Model string

	// Timeout bounds each request. Local models on CPU are slow.
	Timeout time.Duration

	// MaxTokens bounds the answer length (num_predict).
	MaxTokens int

	// Temperature is sent as-is, including zero.
	Temperature float64
}

// Backend generates answers using a locally served model via /api/chat.
type Backend struct {
	http        *httpjson.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewBackend creates a new Ollama backend.
func NewBackend(cfg Config) *Backend {
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
			Provider: "ollama",
			HTTP:     &http.Client{Timeout: cfg.Timeout},
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate runs a non-streaming chat completion.
func (b *Backend) Generate(ctx context.Context, req driven.GenerationRequest) (string, error) {
	system, user := generation.Messages(req)

	var resp chatResponse
	err := b.http.Post(ctx, b.baseURL+"/api/chat", chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Options: options{NumPredict: b.maxTokens, Temperature: b.temperature},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	return resp.Message.Content, nil
}

// ModelName returns the name of the model being used.
func (b *Backend) ModelName() string {
	return b.model
}

// Ping checks the /api/tags endpoint without running inference.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.http.Get(ctx, b.baseURL+"/api/tags", nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}
