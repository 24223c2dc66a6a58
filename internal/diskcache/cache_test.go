package diskcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := Key("https://catalogue.example.com/id/ds-1")

	_, _, ok, err := c.Get(ctx, key, 0)
	require.NoError(t, err)
	assert.False(t, ok, "entry should not exist before Put")

	content := []byte(`{"id":"ds-1"}`)
	meta := []byte(`{"status":200}`)
	require.NoError(t, c.Put(ctx, key, "ds-1", content, meta))

	gotContent, gotMeta, ok, err := c.Get(ctx, key, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, content, gotContent)
	assert.Equal(t, meta, gotMeta)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := Key("https://catalogue.example.com/id/ds-2")

	require.NoError(t, c.Put(ctx, key, "ds-2", []byte("content"), []byte("{}")))

	// Backdate the meta file so it falls outside a 1-second TTL.
	_, metaPath := c.paths(key)
	meta := `{"cached_at":1,"identifier":"ds-2"}`
	require.NoError(t, writeAtomic(metaPath, []byte(meta)))

	_, _, ok, err := c.Get(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok, "entry older than ttlSeconds should be treated as a miss")
}

func TestInvalidateRemovesBothFiles(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := Key("https://catalogue.example.com/id/ds-3")

	require.NoError(t, c.Put(ctx, key, "ds-3", []byte("content"), []byte("{}")))
	require.NoError(t, c.Invalidate(ctx, key))

	_, _, ok, err := c.Get(ctx, key, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalidating an already-absent entry is not an error.
	assert.NoError(t, c.Invalidate(ctx, key))
}

func TestStatsCountsEntriesAndBytes(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, Key("a"), "a", []byte("12345"), []byte("{}")))
	require.NoError(t, c.Put(ctx, Key("b"), "b", []byte("1234567890"), []byte("{}")))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, int64(15), stats.TotalBytes)
}

func TestKeyIsDeterministicAndContentAddressed(t *testing.T) {
	assert.Equal(t, Key("same-identifier"), Key("same-identifier"))
	assert.NotEqual(t, Key("identifier-a"), Key("identifier-b"))
}
