package interfaces

import (
	"context"

	"github.com/ternarybob/datacat/internal/models"
)

// Reranker rescales a candidate result set against the original query,
// typically with a cross-encoder model that scores (query, document)
// pairs directly rather than via independent embeddings. Implementations
// must preserve every input result; only Score and ordering change.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []models.MergedResult, topN int) ([]models.MergedResult, error)
	IsAvailable(ctx context.Context) bool
}
