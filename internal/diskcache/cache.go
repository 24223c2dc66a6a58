// Package diskcache implements the content-addressed on-disk cache used
// by the Cached resource decorator: entries are keyed by the SHA-256 hash
// of a resource identifier and stored as a content/metadata file pair
// under cache_dir/<key[0:2]>/<key>.{content,meta}.
package diskcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/datacat/internal/interfaces"
)

// Cache is a content-addressed on-disk cache.
type Cache struct {
	dir    string
	logger arbor.ILogger
}

// New returns a Cache rooted at dir, creating it if necessary.
func New(dir string, logger arbor.ILogger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Key returns the SHA-256 hex digest used to address identifier on disk.
func Key(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// entryMeta is the JSON sidecar persisted alongside cached content.
type entryMeta struct {
	CachedAt   int64           `json:"cached_at"`
	Identifier string          `json:"identifier"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

func (c *Cache) paths(key string) (contentPath, metaPath string) {
	shard := filepath.Join(c.dir, key[:2])
	return filepath.Join(shard, key+".content"), filepath.Join(shard, key+".meta")
}

// Get returns the cached content and original metadata for key if both
// files are present and, when ttlSeconds > 0, the entry was written
// within the last ttlSeconds.
func (c *Cache) Get(ctx context.Context, key string, ttlSeconds int64) ([]byte, []byte, bool, error) {
	contentPath, metaPath := c.paths(key)

	metaRaw, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}

	var meta entryMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, nil, false, nil
	}

	if ttlSeconds > 0 && time.Now().Unix()-meta.CachedAt > ttlSeconds {
		return nil, nil, false, nil
	}

	content, err := os.ReadFile(contentPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}

	return content, meta.Metadata, true, nil
}

// Put atomically writes content and metadata for key: each file is
// written to a temp name and renamed into place, content before meta, so
// a reader never observes a half-written pair.
func (c *Cache) Put(ctx context.Context, key string, identifier string, content []byte, metadataJSON []byte) error {
	contentPath, metaPath := c.paths(key)
	shard := filepath.Dir(contentPath)
	if err := os.MkdirAll(shard, 0755); err != nil {
		return err
	}

	if err := writeAtomic(contentPath, content); err != nil {
		return err
	}

	meta := entryMeta{
		CachedAt:   time.Now().Unix(),
		Identifier: identifier,
		Metadata:   metadataJSON,
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(metaPath, metaRaw)
}

// Invalidate deletes both files of an entry, if present.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	contentPath, metaPath := c.paths(key)
	if err := removeIfExists(contentPath); err != nil {
		return err
	}
	return removeIfExists(metaPath)
}

// Stats walks the cache directory counting .content files and their
// total size.
func (c *Cache) Stats(ctx context.Context) (interfaces.CacheStats, error) {
	var stats interfaces.CacheStats
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".content" {
			stats.EntryCount++
			stats.TotalBytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ interfaces.Cache = (*Cache)(nil)
