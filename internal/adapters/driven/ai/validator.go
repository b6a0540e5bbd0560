package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultPingTimeout bounds a single connectivity check.
const DefaultPingTimeout = 5 * time.Second

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the adapter they
// describe and pinging it. Settings that are not configured yet pass: there
// is nothing to reach.
type ConfigValidator struct {
	// Timeout bounds each ping. Zero means DefaultPingTimeout.
	Timeout time.Duration
}

// NewConfigValidator creates a validator with the default ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{Timeout: DefaultPingTimeout}
}

// ValidateEmbedding pings the embedding provider settings describes.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := v.pingContext()
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateGeneration pings the generation backend settings describes.
func (v *ConfigValidator) ValidateGeneration(settings *domain.GenerationSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	backend, err := CreateGenerationBackend(settings)
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx, cancel := v.pingContext()
	defer cancel()
	return backend.Ping(ctx)
}

func (v *ConfigValidator) pingContext() (context.Context, context.CancelFunc) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
