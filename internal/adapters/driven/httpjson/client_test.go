package httpjson

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newClient(url string) *Client {
	return &Client{
		Provider: "test",
		HTTP:     &http.Client{Timeout: 2 * time.Second},
		Headers:  map[string]string{"Authorization": "Bearer k"},
	}
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":"ok"}`))
	}))
	defer server.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	err := newClient(server.URL).Post(context.Background(), server.URL, map[string]string{"q": "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Echo)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		kind      error
		retryable bool
	}{
		{http.StatusUnauthorized, domain.ErrAuthFailure, false},
		{http.StatusForbidden, domain.ErrAuthFailure, false},
		{http.StatusTooManyRequests, domain.ErrRateLimited, true},
		{http.StatusGatewayTimeout, domain.ErrTimeout, true},
		{http.StatusInternalServerError, nil, true},
		{http.StatusBadRequest, nil, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			err := newClient(server.URL).Get(context.Background(), server.URL, nil)
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, "nope", se.Body)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}
			assert.Equal(t, tt.retryable, Retryable(err))
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := newClient(server.URL)
	c.HTTP.Timeout = 20 * time.Millisecond

	err := c.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.True(t, Retryable(err))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(fmt.Errorf("x: %w", domain.ErrAuthFailure)))
	assert.True(t, Retryable(errors.New("connection reset")))
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	l := NewLimiter(5)
	require.NotNil(t, l)
	assert.InDelta(t, 5.0, float64(l.Limit()), 1e-9)
}
