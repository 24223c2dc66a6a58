package resource

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/datacat/internal/diskcache"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

// CachedResource decorates any Resource with a content-addressed disk
// cache. The cache key is the SHA-256 of the inner resource's
// identifier.
type CachedResource struct {
	inner interfaces.Resource
	cache *diskcache.Cache
	ttl   int64 // seconds; 0 disables expiry
}

// NewCachedResource wraps inner with a disk cache. ttlSeconds <= 0 means
// entries never expire.
func NewCachedResource(inner interfaces.Resource, cache *diskcache.Cache, ttlSeconds int64) *CachedResource {
	return &CachedResource{inner: inner, cache: cache, ttl: ttlSeconds}
}

// Identifier returns the wrapped resource's identifier unchanged.
func (r *CachedResource) Identifier() string {
	return r.inner.Identifier()
}

// Exists delegates to the inner resource; existence is not cached.
func (r *CachedResource) Exists(ctx context.Context) (bool, error) {
	return r.inner.Exists(ctx)
}

// Fetch returns the cached entry if present and unexpired, otherwise
// delegates to the inner resource and writes the result to cache on
// success.
func (r *CachedResource) Fetch(ctx context.Context) (*models.FetchResult, error) {
	key := diskcache.Key(r.inner.Identifier())

	content, metaJSON, ok, err := r.cache.Get(ctx, key, r.ttl)
	if err != nil {
		return nil, err
	}
	if ok {
		var meta models.FetchMetadata
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &meta)
		}
		return &models.FetchResult{
			Content:   content,
			Metadata:  meta,
			Success:   true,
			FromCache: true,
		}, nil
	}

	return r.fetchFresh(ctx)
}

// FetchFresh bypasses the cache read but always writes the result,
// matching the cached-resource contract's fetch_fresh operation.
func (r *CachedResource) FetchFresh(ctx context.Context) (*models.FetchResult, error) {
	return r.fetchFresh(ctx)
}

func (r *CachedResource) fetchFresh(ctx context.Context) (*models.FetchResult, error) {
	result, err := r.inner.Fetch(ctx)
	if err != nil {
		return result, err
	}
	if result.Success {
		metaJSON, jsonErr := json.Marshal(result.Metadata)
		if jsonErr == nil {
			key := diskcache.Key(r.inner.Identifier())
			_ = r.cache.Put(ctx, key, r.inner.Identifier(), result.Content, metaJSON)
		}
	}
	result.FromCache = false
	return result, nil
}

// Invalidate deletes the cached entry for this resource's identifier.
func (r *CachedResource) Invalidate(ctx context.Context) error {
	return r.cache.Invalidate(ctx, diskcache.Key(r.inner.Identifier()))
}
