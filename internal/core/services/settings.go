package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyChunkWindow     = "chunking.window"
	KeyChunkOverlap    = "chunking.overlap"
	KeyTopK            = "retrieval.top_k"
	KeyMaxContextChars = "context.max_chars"
	KeyStatsSample     = "vector.stats_sample"

	KeyEmbedProvider  = "embedding.provider"
	KeyEmbedModel     = "embedding.model"
	KeyEmbedBaseURL   = "embedding.base_url"
	KeyEmbedAPIKey    = "embedding.api_key"
	KeyEmbedCacheSize = "embedding.cache_size"

	KeyGenBackend     = "generation.backend"
	KeyGenProvider    = "generation.provider"
	KeyGenModel       = "generation.model"
	KeyGenBaseURL     = "generation.base_url"
	KeyGenAPIKey      = "generation.api_key"
	KeyGenTimeout     = "generation.timeout_seconds"
	KeyGenMaxRetries  = "generation.max_retries"
	KeyGenMaxTokens   = "generation.max_tokens"
	KeyGenTemperature = "generation.temperature"

	KeyVectorProvider   = "vector.provider"
	KeyVectorURL        = "vector.url"
	KeyVectorCollection = "vector.collection"
	KeyVectorAPIKey     = "vector.api_key"

	KeyDataDir    = "data.dir"
	KeyServerAddr = "server.addr"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

// settingKinds lists every recognised key and how Set parses its value.
var settingKinds = map[string]valueKind{
	KeyChunkWindow:      kindInt,
	KeyChunkOverlap:     kindInt,
	KeyTopK:             kindInt,
	KeyMaxContextChars:  kindInt,
	KeyStatsSample:      kindInt,
	KeyEmbedProvider:    kindString,
	KeyEmbedModel:       kindString,
	KeyEmbedBaseURL:     kindString,
	KeyEmbedAPIKey:      kindString,
	KeyEmbedCacheSize:   kindInt,
	KeyGenBackend:       kindString,
	KeyGenProvider:      kindString,
	KeyGenModel:         kindString,
	KeyGenBaseURL:       kindString,
	KeyGenAPIKey:        kindString,
	KeyGenTimeout:       kindInt,
	KeyGenMaxRetries:    kindInt,
	KeyGenMaxTokens:     kindInt,
	KeyGenTemperature:   kindFloat,
	KeyVectorProvider:   kindString,
	KeyVectorURL:        kindString,
	KeyVectorCollection: kindString,
	KeyVectorAPIKey:     kindString,
	KeyDataDir:          kindString,
	KeyServerAddr:       kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. aiValidator may be nil.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Missing keys take their
// defaults, and empty API keys fall back to the provider's env variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Window:  s.getInt(KeyChunkWindow, d.Chunking.Window),
			Overlap: s.getInt(KeyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(KeyTopK, d.Retrieval.TopK),
			MaxContextChars: s.getInt(KeyMaxContextChars, d.Retrieval.MaxContextChars),
			StatsSample:     s.getInt(KeyStatsSample, d.Retrieval.StatsSample),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(KeyEmbedProvider, d.Embedding.Provider),
			BaseURL:   s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:    s.configStore.GetString(KeyEmbedAPIKey),
			CacheSize: s.getInt(KeyEmbedCacheSize, d.Embedding.CacheSize),
		},
		Generation: domain.GenerationSettings{
			Backend:     s.getBackend(d.Generation.Backend),
			Provider:    s.getProvider(KeyGenProvider, d.Generation.Provider),
			BaseURL:     s.configStore.GetString(KeyGenBaseURL),
			APIKey:      s.configStore.GetString(KeyGenAPIKey),
			Timeout:     time.Duration(s.getInt(KeyGenTimeout, int(d.Generation.Timeout/time.Second))) * time.Second,
			MaxRetries:  s.getInt(KeyGenMaxRetries, d.Generation.MaxRetries),
			MaxTokens:   s.getInt(KeyGenMaxTokens, d.Generation.MaxTokens),
			Temperature: s.getFloat(KeyGenTemperature, d.Generation.Temperature),
		},
		Vector: domain.VectorSettings{
			Provider:   s.getVectorProvider(d.Vector.Provider),
			URL:        s.configStore.GetString(KeyVectorURL),
			Collection: s.getString(KeyVectorCollection, d.Vector.Collection),
			APIKey:     s.configStore.GetString(KeyVectorAPIKey),
		},
		ServerAddr: s.getString(KeyServerAddr, d.ServerAddr),
		DataDir:    s.getString(KeyDataDir, d.DataDir),
	}

	// Models default per provider
	settings.Embedding.Model = s.getString(KeyEmbedModel,
		domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.Generation.Model = s.getString(KeyGenModel,
		domain.DefaultGenerationModels()[settings.Generation.EffectiveProvider()])

	// Secrets fall back to the environment
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.Generation.APIKey == "" {
		settings.Generation.APIKey = s.envKey(settings.Generation.EffectiveProvider())
	}

	return settings, nil
}

// Set validates and persists one setting. The resulting settings must
// still be consistent, e.g. an overlap at least as large as the window is
// rejected.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidInput, key, value)
		}
		if n < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidInput, key, value)
		}
		parsed = f
	default:
		if err := validateEnum(key, value); err != nil {
			return err
		}
		parsed = value
	}

	if err := s.checkChunking(key, parsed); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate returns every problem with the current settings. An empty
// list means the settings are usable.
func (s *SettingsService) Validate() []string {
	settings, err := s.Get()
	if err != nil {
		return []string{err.Error()}
	}

	var problems []string
	if err := settings.Chunking.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if settings.Retrieval.TopK <= 0 {
		problems = append(problems, "retrieval.top_k must be positive")
	}
	if !settings.Embedding.IsConfigured() {
		p := settings.Embedding.Provider
		if p.RequiresAPIKey() {
			problems = append(problems, fmt.Sprintf("embedding provider %s requires an API key (embedding.api_key or %s)",
				p, p.APIKeyEnv()))
		} else {
			problems = append(problems, fmt.Sprintf("embedding provider %s does not support embeddings", p))
		}
	}
	g := settings.Generation
	if !g.Backend.Accepts(g.EffectiveProvider()) {
		problems = append(problems, fmt.Sprintf("generation provider %s is not available for the %s backend",
			g.EffectiveProvider(), g.Backend))
	} else if !g.IsConfigured() {
		p := g.EffectiveProvider()
		problems = append(problems, fmt.Sprintf("%s generation requires an API key (generation.api_key or %s)",
			p, p.APIKeyEnv()))
	}
	if settings.Vector.Provider == domain.VectorProviderQdrant && settings.Vector.Collection == "" {
		problems = append(problems, "vector.collection must be set for qdrant")
	}
	return problems
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateGenerationConfig validates the current generation configuration by pinging the backend.
func (s *SettingsService) ValidateGenerationConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateGeneration(&settings.Generation)
}

// checkChunking rejects a window/overlap change that would leave the
// chunker unable to advance.
func (s *SettingsService) checkChunking(key string, parsed any) error {
	if key != KeyChunkWindow && key != KeyChunkOverlap {
		return nil
	}
	current, err := s.Get()
	if err != nil {
		return err
	}
	c := current.Chunking
	if key == KeyChunkWindow {
		c.Window, _ = parsed.(int)
	} else {
		c.Overlap, _ = parsed.(int)
	}
	return c.Validate()
}

func validateEnum(key, value string) error {
	var ok bool
	switch key {
	case KeyEmbedProvider:
		p := domain.AIProvider(value)
		ok = p.IsValid() && p != domain.AIProviderAnthropic
	case KeyGenProvider:
		ok = domain.AIProvider(value).IsValid() && domain.AIProvider(value) != domain.AIProviderHashing
	case KeyGenBackend:
		ok = domain.GenerationBackend(value).IsValid()
	case KeyVectorProvider:
		ok = domain.VectorProvider(value).IsValid()
	default:
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: invalid value %q for %s", domain.ErrInvalidInput, value, key)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(p domain.AIProvider) string {
	if env := p.APIKeyEnv(); env != "" {
		return s.getenv(env)
	}
	return ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt distinguishes a stored zero from a missing key, since zero is a
// valid overlap and context bound.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.GenerationBackend) domain.GenerationBackend {
	backend := domain.GenerationBackend(s.configStore.GetString(KeyGenBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getVectorProvider(defaultVal domain.VectorProvider) domain.VectorProvider {
	provider := domain.VectorProvider(s.configStore.GetString(KeyVectorProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
