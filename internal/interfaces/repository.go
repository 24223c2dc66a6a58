package interfaces

import (
	"context"

	"github.com/ternarybob/datacat/internal/models"
)

// Repository is the canonical document-store contract for Dataset
// persistence: upsert, paged list, keyword search, bulk write, and
// identifier scan.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Dataset, error)
	GetAllIdentifiers(ctx context.Context) ([]string, error)
	// GetAllForEmbedding returns every dataset projected to
	// {identifier, title, abstract} for efficiency.
	GetAllForEmbedding(ctx context.Context) ([]*models.Dataset, error)
	GetPaged(ctx context.Context, page, pageSize int) (*models.PagedResult, error)

	Save(ctx context.Context, d *models.Dataset) (string, error)
	SaveMany(ctx context.Context, datasets []*models.Dataset) (*models.BulkResult, error)

	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)

	// Search performs a case-insensitive substring match on title OR
	// abstract; the query is escaped so it is treated literally.
	Search(ctx context.Context, query string, limit int) ([]*models.Dataset, error)

	// SaveEmbedding persists a computed embedding onto the stored
	// dataset record without otherwise mutating it.
	SaveEmbedding(ctx context.Context, id string, embedding []float32, model string) error
	// ClearEmbeddings unsets every stored embedding.
	ClearEmbeddings(ctx context.Context) error
}
