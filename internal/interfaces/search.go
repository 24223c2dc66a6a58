package interfaces

import (
	"context"

	"github.com/ternarybob/datacat/internal/models"
)

// SearchOptions controls a single hybrid search call. search.Service
// does not read Mode: it runs hybrid when the vector store is available
// and keyword-only otherwise. Advanced enables the rerank overlay for
// this call even when SearchConfig.Advanced is off.
type SearchOptions struct {
	Limit    int
	Mode     string // "hybrid", "semantic" or "keyword"; not read by search.Service
	Advanced bool
}

// SearchService is the hybrid search contract consumed by the (out of
// scope) HTTP boundary and by the CLI's search subcommand.
type SearchService interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*models.SearchResponse, error)
}
