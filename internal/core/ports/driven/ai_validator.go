package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator checks provider settings against the live provider.
// Settings that are not filled in yet are not an error.
type AIConfigValidator interface {
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
	ValidateGeneration(settings *domain.GenerationSettings) error
}
