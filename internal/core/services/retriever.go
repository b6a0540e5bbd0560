package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Retriever embeds a question and returns the nearest chunks.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
}

// NewRetriever creates a retriever. It must share the embedder used at
// ingestion time.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to k chunks ordered by ascending distance, exactly as
// the index returned them. Score is 1 - distance.
func (r *Retriever) Retrieve(
	ctx context.Context, question string, k int, filter map[string]string,
) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, domain.NewOpError("retrieve", "", domain.ErrInvalidArgument,
			fmt.Errorf("k must be positive, got %d", k))
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.NewOpError("retrieve", "", domain.ErrInvalidArgument,
			errors.New("question is empty"))
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, domain.NewOpError("embed question", "", domain.ErrEmbeddingFailure, err)
	}

	hits, err := r.index.Query(ctx, vector, k, filter)
	if err != nil {
		return nil, domain.NewOpError("query", "", domain.ErrIndexUnavailable, err)
	}
	logger.Debug("Retrieved %d of %d chunks (filter=%v)", len(hits), k, filter)

	chunks := make([]domain.RetrievedChunk, len(hits))
	for i, h := range hits {
		chunks[i] = toRetrievedChunk(h)
	}
	return chunks, nil
}

func toRetrievedChunk(h driven.VectorHit) domain.RetrievedChunk {
	docID, _ := h.Metadata[domain.MetaDocID].(string)
	index, ok := domain.MetadataInt(h.Metadata, domain.MetaChunkIndex)
	if !ok {
		index = -1
	}
	return domain.RetrievedChunk{
		ChunkID:    h.ID,
		DocumentID: docID,
		Index:      index,
		Content:    h.Text,
		Metadata:   h.Metadata,
		Distance:   h.Distance,
		Score:      domain.ScoreFromDistance(h.Distance),
	}
}
