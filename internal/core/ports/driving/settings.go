package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults filled in.
	Get() (*domain.AppSettings, error)

	// Set validates and persists a single setting by key.
	Set(key, value string) error

	// Keys lists the recognised setting keys.
	Keys() []string

	// Validate returns every problem with the current settings.
	Validate() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateGenerationConfig pings the configured generation backend.
	ValidateGenerationConfig() error
}
