package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNewBackend(t *testing.T) {
	_, err := NewBackend(Config{})
	assert.Error(t, err, "API key is required")

	b, err := NewBackend(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, b.ModelName())
	assert.Equal(t, DefaultMaxTokens, b.maxTokens)
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "gpt-test", raw["model"])
		assert.Equal(t, float64(0), raw["temperature"], "zero temperature is sent explicitly")
		assert.Equal(t, float64(500), raw["max_tokens"])

		msgs := raw["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Contains(t, msgs[0].(map[string]any)["content"], "ctx block")
		assert.Equal(t, "Question: why?", msgs[1].(map[string]any)["content"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"because"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	b, err := NewBackend(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-test"})
	require.NoError(t, err)

	got, err := b.Generate(context.Background(), driven.GenerationRequest{System: "rules", Context: "ctx block", Question: "why?"})
	require.NoError(t, err)
	assert.Equal(t, "because", got)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, domain.ErrAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, domain.ErrRateLimited},
		{"no choices", http.StatusOK, `{"choices":[]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b, err := NewBackend(Config{APIKey: "sk-test", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = b.Generate(context.Background(), driven.GenerationRequest{Question: "q"})
			require.Error(t, err)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}
		})
	}
}
