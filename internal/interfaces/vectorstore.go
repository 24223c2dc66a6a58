package interfaces

import (
	"context"

	"github.com/ternarybob/datacat/internal/models"
)

// VectorStore stores embeddings alongside the documents they describe
// and performs approximate-nearest-neighbour search over them. It shares
// its physical document identity with Repository: both key on
// Dataset.Identifier.
type VectorStore interface {
	AddDatasets(ctx context.Context, datasets []*models.Dataset, skipExisting bool) (*models.IndexingResult, error)
	Search(ctx context.Context, queryText string, limit int, minScore float64) ([]models.SearchResult, error)
	GetIndexedIDs(ctx context.Context) ([]string, error)
	GetStats(ctx context.Context) (map[string]interface{}, error)
	Clear(ctx context.Context) error
	IsAvailable(ctx context.Context) bool
}
