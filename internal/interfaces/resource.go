// Package interfaces declares the contracts between datacat's components,
// so each layer (resource, cache, parser, repository, embedding, vector
// store, search, guardrails, RAG) can be composed and tested against a
// fake without depending on a concrete implementation.
package interfaces

import (
	"context"

	"github.com/ternarybob/datacat/internal/models"
)

// Resource is an opaque fetchable source: an HTTP endpoint, a local file,
// a ZIP archive entry, or a caching decorator over any of those.
type Resource interface {
	// Identifier is a stable unique string (URL, absolute path, or
	// zip://path#entry) used as the cache key and for logging.
	Identifier() string
	Exists(ctx context.Context) (bool, error)
	Fetch(ctx context.Context) (*models.FetchResult, error)
}

// StreamingResource is implemented by resources that can expose their
// content incrementally instead of loading it fully into memory.
type StreamingResource interface {
	Resource
	Stream(ctx context.Context, chunkSize int) (<-chan []byte, <-chan error)
}
