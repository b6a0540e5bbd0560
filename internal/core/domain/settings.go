package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// APIKeyEnv is the environment variable consulted when no key is configured.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (offline, built in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// GenerationBackend is the tagged choice between a hosted API and a
// locally served model. It is chosen once, from configuration.
type GenerationBackend string

// Available generation backends.
const (
	GenerationBackendRemote GenerationBackend = "remote"
	GenerationBackendLocal  GenerationBackend = "local"
)

// IsValid returns true if the backend is recognised.
func (b GenerationBackend) IsValid() bool {
	return b == GenerationBackendRemote || b == GenerationBackendLocal
}

// String returns the string representation.
func (b GenerationBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b GenerationBackend) Description() string {
	switch b {
	case GenerationBackendRemote:
		return "Remote (hosted API)"
	case GenerationBackendLocal:
		return "Local (Ollama)"
	default:
		return unknownDescription
	}
}

// Providers lists the providers this backend accepts.
func (b GenerationBackend) Providers() []AIProvider {
	switch b {
	case GenerationBackendRemote:
		return []AIProvider{AIProviderOpenAI, AIProviderAnthropic}
	case GenerationBackendLocal:
		return []AIProvider{AIProviderOllama}
	default:
		return nil
	}
}

// Accepts reports whether p may serve this backend.
func (b GenerationBackend) Accepts(p AIProvider) bool {
	for _, candidate := range b.Providers() {
		if candidate == p {
			return true
		}
	}
	return false
}

// VectorProvider selects the vector index implementation.
type VectorProvider string

// Available vector index providers.
const (
	VectorProviderSQLite VectorProvider = "sqlite"
	VectorProviderMemory VectorProvider = "memory"
	VectorProviderQdrant VectorProvider = "qdrant"
)

// IsValid returns true if the provider is recognised.
func (p VectorProvider) IsValid() bool {
	switch p {
	case VectorProviderSQLite, VectorProviderMemory, VectorProviderQdrant:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p VectorProvider) String() string {
	return string(p)
}

// ChunkingSettings controls the word-window chunker.
type ChunkingSettings struct {
	Window  int
	Overlap int
}

// Validate reports ErrInvalidConfiguration for windows that would not advance.
func (c ChunkingSettings) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: chunk window must be positive, got %d", ErrInvalidConfiguration, c.Window)
	}
	if c.Overlap < 0 || c.Overlap >= c.Window {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d",
			ErrInvalidConfiguration, c.Window, c.Overlap)
	}
	return nil
}

// RetrievalSettings controls the read path.
type RetrievalSettings struct {
	// TopK is the default number of chunks per question.
	TopK int

	// MaxContextChars bounds the assembled context. Zero disables the bound.
	MaxContextChars int

	// StatsSample is the peek size used to approximate the document count.
	StatsSample int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// CacheSize is the number of embeddings kept in memory. Zero disables the cache.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider == AIProviderAnthropic || !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings holds generation backend configuration.
type GenerationSettings struct {
	Backend GenerationBackend

	// Provider is used by the remote backend. The local backend is always Ollama.
	Provider AIProvider

	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// EffectiveProvider resolves the provider the backend will actually use.
func (g GenerationSettings) EffectiveProvider() AIProvider {
	if g.Backend == GenerationBackendLocal {
		return AIProviderOllama
	}
	return g.Provider
}

// IsConfigured returns true if the generation backend is set up.
func (g GenerationSettings) IsConfigured() bool {
	p := g.EffectiveProvider()
	if !g.Backend.Accepts(p) {
		return false
	}
	if p.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings selects and addresses the vector index.
type VectorSettings struct {
	Provider   VectorProvider
	URL        string
	Collection string
	APIKey     string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking   ChunkingSettings
	Retrieval  RetrievalSettings
	Embedding  EmbeddingSettings
	Generation GenerationSettings
	Vector     VectorSettings

	// ServerAddr is the listen address for the HTTP API.
	ServerAddr string

	// DataDir holds the sqlite index and the metrics log.
	DataDir string
}

// DefaultAppSettings returns settings with sensible defaults.
// The defaults work offline except for generation, which needs an API key
// or a local Ollama.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Window:  500,
			Overlap: 50,
		},
		Retrieval: RetrievalSettings{
			TopK:            5,
			MaxContextChars: 12000,
			StatsSample:     500,
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderHashing,
			Model:     DefaultEmbeddingModels()[AIProviderHashing],
			CacheSize: 1024,
		},
		Generation: GenerationSettings{
			Backend:     GenerationBackendRemote,
			Provider:    AIProviderOpenAI,
			Model:       DefaultGenerationModels()[AIProviderOpenAI],
			Timeout:     30 * time.Second,
			MaxRetries:  2,
			MaxTokens:   500,
			Temperature: 0,
		},
		Vector: VectorSettings{
			Provider:   VectorProviderSQLite,
			Collection: "documents",
		},
		ServerAddr: "0.0.0.0:8000",
		DataDir:    "",
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllGenerationBackends returns the selectable generation backends.
func AllGenerationBackends() []GenerationBackend {
	return []GenerationBackend{
		GenerationBackendRemote,
		GenerationBackendLocal,
	}
}

// AllVectorProviders returns the selectable vector index providers.
func AllVectorProviders() []VectorProvider {
	return []VectorProvider{
		VectorProviderSQLite,
		VectorProviderMemory,
		VectorProviderQdrant,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-384",
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultGenerationModels returns default models for each generation provider.
func DefaultGenerationModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hashing-384": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
