package interfaces

import "context"

// CacheStats summarises a content-addressed cache by scanning its
// content files.
type CacheStats struct {
	EntryCount int   `json:"entry_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// Cache is the content-addressed on-disk cache contract shared by the
// Cached resource decorator.
type Cache interface {
	// Get returns the cached content and metadata JSON for key, or
	// ok=false if no entry exists or it has expired under ttl.
	Get(ctx context.Context, key string, ttl int64) (content []byte, metaJSON []byte, ok bool, err error)
	// Put writes content and metadata atomically (write-temp-then-rename),
	// content file before meta file, so a reader never observes a
	// half-written pair. identifier is the inner resource's uncached
	// identifier, stored alongside the content for diagnostics.
	Put(ctx context.Context, key string, identifier string, content []byte, metaJSON []byte) error
	Invalidate(ctx context.Context, key string) error
	Stats(ctx context.Context) (CacheStats, error)
}
