// Package ai builds the embedding service, generation backend and vector
// index from settings. Every choice is made here, once, at start-up.
package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/generation"
	anthropicgen "github.com/custodia-labs/docqa/internal/adapters/driven/generation/anthropic"
	ollamagen "github.com/custodia-labs/docqa/internal/adapters/driven/generation/ollama"
	openaigen "github.com/custodia-labs/docqa/internal/adapters/driven/generation/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Components are the adapters the core services run on.
type Components struct {
	Embedding  driven.EmbeddingService
	Generation driven.GenerationBackend
	Index      driven.VectorIndex
}

// Close releases all resources held by the components.
func (c *Components) Close() {
	if c.Embedding != nil {
		c.Embedding.Close()
	}
	if c.Generation != nil {
		c.Generation.Close()
	}
	if c.Index != nil {
		c.Index.Close()
	}
}

// Build creates every component from settings. The generation backend is
// only built when withGeneration is set, so ingestion works without a key.
func Build(ctx context.Context, settings *domain.AppSettings, withGeneration bool) (*Components, error) {
	c := &Components{}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	c.Embedding = embedding

	index, err := CreateVectorIndex(ctx, &settings.Vector, settings.DataDir, embedding.Dimensions())
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Index = index

	if withGeneration {
		backend, err := CreateGenerationBackend(&settings.Generation)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: %w. Run 'docqa settings check' for details",
				domain.ErrInvalidConfiguration, err)
		}
		c.Generation = backend
	}

	logger.Debug("Components: embedding=%s index=%s generation=%t",
		embedding.ModelName(), settings.Vector.Provider, withGeneration)
	return c, nil
}

// CreateEmbeddingService creates the embedding service selected by settings,
// wrapped in an in-memory cache when CacheSize > 0.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider %q is not configured", providerOf(settings))
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderHashing:
		svc = hashing.NewEmbeddingService(domain.EmbeddingDimensions()[settings.Model])

	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use hashing, ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.CacheSize <= 0 {
		return svc, nil
	}
	cached, err := cache.New(svc, settings.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// CreateGenerationBackend creates the backend selected by the tagged
// Remote|Local choice, with bounded retries.
func CreateGenerationBackend(settings *domain.GenerationSettings) (driven.GenerationBackend, error) {
	if settings == nil {
		return nil, fmt.Errorf("generation is not configured")
	}

	var (
		backend driven.GenerationBackend
		err     error
	)
	switch settings.Backend {
	case domain.GenerationBackendLocal:
		backend = createOllamaGeneration(settings)

	case domain.GenerationBackendRemote:
		switch settings.Provider {
		case domain.AIProviderOpenAI:
			backend, err = createOpenAIGeneration(settings)
		case domain.AIProviderAnthropic:
			backend, err = createAnthropicGeneration(settings)
		default:
			return nil, fmt.Errorf("provider %s cannot serve the remote backend", settings.Provider)
		}

	default:
		return nil, fmt.Errorf("unknown generation backend: %q", settings.Backend)
	}
	if err != nil {
		return nil, err
	}

	return generation.WithRetry(backend, settings.MaxRetries, generation.DefaultRetryBase), nil
}

// CreateVectorIndex opens the index selected by settings. dims is the
// embedding size, needed to create a remote collection.
func CreateVectorIndex(
	ctx context.Context, settings *domain.VectorSettings, dataDir string, dims int,
) (driven.VectorIndex, error) {
	switch settings.Provider {
	case domain.VectorProviderMemory:
		return memory.NewVectorIndex(), nil

	case domain.VectorProviderQdrant:
		store, err := qdrant.NewStore(ctx, qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Dimensions: dims,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		return store, nil

	case domain.VectorProviderSQLite, "":
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown vector provider %q", domain.ErrInvalidConfiguration, settings.Provider)
	}
}

func providerOf(settings *domain.EmbeddingSettings) domain.AIProvider {
	if settings == nil {
		return ""
	}
	return settings.Provider
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaGeneration creates the local backend.
func createOllamaGeneration(settings *domain.GenerationSettings) driven.GenerationBackend {
	return ollamagen.NewBackend(ollamagen.Config{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	})
}

// createOpenAIGeneration creates an OpenAI chat backend.
func createOpenAIGeneration(settings *domain.GenerationSettings) (driven.GenerationBackend, error) {
	return openaigen.NewBackend(openaigen.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	})
}

// createAnthropicGeneration creates an Anthropic messages backend.
func createAnthropicGeneration(settings *domain.GenerationSettings) (driven.GenerationBackend, error) {
	return anthropicgen.NewBackend(anthropicgen.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	})
}
