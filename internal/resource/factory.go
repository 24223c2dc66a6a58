package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/datacat/internal/common"
	"github.com/ternarybob/datacat/internal/diskcache"
	"github.com/ternarybob/datacat/internal/interfaces"
)

// Factory constructs Resource variants wrapped in the caching decorator,
// confining the lazy construction the design notes call for to a single
// composition-root-owned object.
type Factory struct {
	cache   *diskcache.Cache
	ttl     int64
	timeout time.Duration
	logger  arbor.ILogger
}

// NewFactory returns a Factory backed by the configured cache directory.
func NewFactory(config *common.CacheConfig, timeout time.Duration, logger arbor.ILogger) (*Factory, error) {
	cache, err := diskcache.New(config.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource cache: %w", err)
	}
	return &Factory{
		cache:   cache,
		ttl:     int64(config.TTL.Seconds()),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// HTTP returns a cached HTTP GET resource.
func (f *Factory) HTTP(url string, opts ...HTTPOption) interfaces.Resource {
	inner := NewHTTPResource(url, f.timeout, f.logger, opts...)
	return NewCachedResource(inner, f.cache, f.ttl)
}

// LocalFile returns a cached local-file resource.
func (f *Factory) LocalFile(path string) interfaces.Resource {
	return NewCachedResource(NewLocalFileResource(path), f.cache, f.ttl)
}

// ZipEntry returns a cached ZIP-entry resource.
func (f *Factory) ZipEntry(archivePath, entryName string) interfaces.Resource {
	return NewCachedResource(NewZipEntryResource(archivePath, entryName), f.cache, f.ttl)
}

// FromIdentifier dispatches on an identifier's scheme: zip://path#entry,
// a local path with no scheme, or anything else treated as an HTTP(S)
// URL.
func (f *Factory) FromIdentifier(identifier string) interfaces.Resource {
	if strings.HasPrefix(identifier, "zip://") {
		rest := strings.TrimPrefix(identifier, "zip://")
		parts := strings.SplitN(rest, "#", 2)
		if len(parts) == 2 {
			return f.ZipEntry(parts[0], parts[1])
		}
	}
	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		return f.HTTP(identifier)
	}
	return f.LocalFile(identifier)
}

// Stats reports the underlying cache's entry count and total size.
func (f *Factory) Stats(ctx context.Context) (interfaces.CacheStats, error) {
	return f.cache.Stats(ctx)
}
