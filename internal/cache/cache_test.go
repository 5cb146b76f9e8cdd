package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

func content(path string, html string) *plugin.Content {
	c := plugin.NewContent(pathid.FilePath(path), "", []byte("raw"))
	c.HTML = html
	c.Tags = []string{"t"}
	return c
}

func TestLookup_HitAndMiss(t *testing.T) {
	c := Open(context.Background(), nil, Options{})
	h := HashBytes([]byte("hello"))

	_, ok := c.Lookup("a.md", h)
	assert.False(t, ok)

	c.Store("a.md", h, content("a.md", "<p>a</p>"))
	got, ok := c.Lookup("a.md", h)
	require.True(t, ok)
	assert.Equal(t, "<p>a</p>", got.HTML)

	// returned content is a private copy
	got.Tags[0] = "changed"
	again, _ := c.Lookup("a.md", h)
	assert.Equal(t, "t", again.Tags[0])

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Stores)
	assert.InDelta(t, 2.0/3.0, st.HitRate(), 0.001)
}

func TestLookup_StaleHashEvicts(t *testing.T) {
	c := Open(context.Background(), nil, Options{})
	c.Store("a.md", HashBytes([]byte("v1")), content("a.md", "v1"))

	_, ok := c.Lookup("a.md", HashBytes([]byte("v2")))
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestStore_Idempotent(t *testing.T) {
	c := Open(context.Background(), nil, Options{})
	h := HashBytes([]byte("x"))
	c.Store("a.md", h, content("a.md", "same"))
	c.Store("a.md", h, content("a.md", "same"))
	got, ok := c.Lookup("a.md", h)
	require.True(t, ok)
	assert.Equal(t, "same", got.HTML)
	assert.Equal(t, 1, c.Len())
}

func TestKeyPolicy(t *testing.T) {
	ctx := context.Background()
	h := HashBytes([]byte("body"))

	for _, tc := range []struct {
		policy  config.CacheKeyPolicy
		wantHit bool
	}{
		{config.KeyPolicyContent, true},
		{config.KeyPolicyContentAndPlugins, false},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			backend := NewMemoryBackend()
			first := Open(ctx, backend, Options{Policy: tc.policy, Fingerprint: "fp-1"})
			first.Store("a.md", h, content("a.md", "old"))
			require.NoError(t, first.Close(ctx))

			same := Open(ctx, backend, Options{Policy: tc.policy, Fingerprint: "fp-1"})
			_, ok := same.Lookup("a.md", h)
			assert.True(t, ok, "unchanged configuration must hit")

			changed := Open(ctx, backend, Options{Policy: tc.policy, Fingerprint: "fp-2"})
			_, ok = changed.Lookup("a.md", h)
			assert.Equal(t, tc.wantHit, ok)
		})
	}
}

func TestKey(t *testing.T) {
	h := HashBytes([]byte("x"))
	plain := Open(context.Background(), nil, Options{Policy: config.KeyPolicyContent, Fingerprint: "fp"})
	assert.Equal(t, string(h), plain.Key(h))

	mixed := Open(context.Background(), nil, Options{Fingerprint: "fp"})
	assert.Equal(t, config.KeyPolicyContentAndPlugins, mixed.Policy())
	assert.NotEqual(t, string(h), mixed.Key(h))
	assert.Len(t, mixed.Key(h), 64)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	backends := map[string]func(dir string) Backend{
		"json": func(dir string) Backend { return NewJSONFileBackend(dir) },
		"bolt": func(dir string) Backend {
			b, err := NewBoltBackend(dir)
			require.NoError(t, err)
			return b
		},
	}
	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			h := HashBytes([]byte("persist"))

			c := Open(ctx, mk(dir), Options{Fingerprint: "fp"})
			stored := content("docs/a.md", "<h1>A</h1>")
			stored.FrontMatter = map[string]any{"title": "A"}
			stored.Dates.Modified = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			c.Store("docs/a.md", h, stored)
			c.Store("docs/b.md", HashBytes([]byte("b")), content("docs/b.md", "b"))
			require.NoError(t, c.Close(ctx))

			reopened := Open(ctx, mk(dir), Options{Fingerprint: "fp"})
			defer func() { require.NoError(t, reopened.Close(ctx)) }()
			assert.Equal(t, 2, reopened.Len())
			got, ok := reopened.Lookup("docs/a.md", h)
			require.True(t, ok)
			assert.Equal(t, "<h1>A</h1>", got.HTML)
			assert.Equal(t, pathid.Slug("docs/a"), got.Slug)
			assert.Equal(t, "A", got.FrontMatter["title"])
			assert.True(t, stored.Dates.Modified.Equal(got.Dates.Modified))
		})
	}
}

func TestOpen_CorruptJSONDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, JSONFileName), []byte("{not json"), 0o600))

	c := Open(context.Background(), NewJSONFileBackend(dir), Options{})
	assert.Equal(t, 0, c.Len())

	c.Store("a.md", HashBytes([]byte("a")), content("a.md", "a"))
	require.NoError(t, c.Flush(context.Background()))
	reopened := Open(context.Background(), NewJSONFileBackend(dir), Options{})
	assert.Equal(t, 1, reopened.Len())
}

func TestOpen_SchemaMismatchDiscarded(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), &Snapshot{
		SchemaVersion: SchemaVersion + 1,
		Entries:       map[pathid.FilePath]Entry{"a.md": {Hash: "h", Key: "h", Content: content("a.md", "x")}},
	}))
	c := Open(context.Background(), backend, Options{Policy: config.KeyPolicyContent})
	assert.Equal(t, 0, c.Len())
}

func TestFlush_OnlyWhenDirty(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	c := Open(ctx, backend, Options{})

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 0, backend.Saves)
	assert.False(t, c.Dirty())

	c.Store("a.md", HashBytes([]byte("a")), content("a.md", "a"))
	assert.True(t, c.Dirty())
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 1, backend.Saves)
	assert.False(t, c.Dirty())
}

func TestJSONBackend_NoFileForEmptyCache(t *testing.T) {
	dir := t.TempDir()
	c := Open(context.Background(), NewJSONFileBackend(dir), Options{})
	require.NoError(t, c.Close(context.Background()))
	_, err := os.Stat(filepath.Join(dir, JSONFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestPrune(t *testing.T) {
	c := Open(context.Background(), nil, Options{})
	for _, p := range []pathid.FilePath{"a.md", "b.md", "c.md"} {
		c.Store(p, HashBytes([]byte(p)), content(string(p), ""))
	}
	removed := c.Prune(map[pathid.FilePath]struct{}{"b.md": {}})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
}

func TestConcurrentStores(t *testing.T) {
	c := Open(context.Background(), nil, Options{})
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := pathid.FilePath(fmt.Sprintf("doc-%d.md", i))
			h := HashBytes([]byte(id))
			c.Store(id, h, content(string(id), string(id)))
			_, _ = c.Lookup(id, h)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 64, c.Len())
	for i := range 64 {
		id := pathid.FilePath(fmt.Sprintf("doc-%d.md", i))
		got, ok := c.Lookup(id, HashBytes([]byte(id)))
		require.True(t, ok)
		assert.Equal(t, string(id), got.HTML)
	}
}

func TestBackgroundFlush(t *testing.T) {
	backend := NewMemoryBackend()
	c := Open(context.Background(), backend, Options{FlushEvery: 2})
	defer func() { _ = c.Close(context.Background()) }()

	c.Store("a.md", HashBytes([]byte("a")), content("a.md", "a"))
	c.Store("b.md", HashBytes([]byte("b")), content("b.md", "b"))

	require.Eventually(t, func() bool {
		snap, _ := backend.Load(context.Background())
		return snap != nil && len(snap.Entries) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := Open(ctx, NewJSONFileBackend(dir), Options{})
	c.Store("a.md", HashBytes([]byte("a")), content("a.md", "a"))
	require.NoError(t, c.Flush(ctx))

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
	_, err := os.Stat(filepath.Join(dir, JSONFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestNewBackend(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend(config.CacheConfig{Dir: dir, Backend: config.CacheBackendJSON}, nil)
	assert.Equal(t, "json", b.Name())

	b = NewBackend(config.CacheConfig{Dir: dir, Backend: config.CacheBackendBolt}, nil)
	assert.Equal(t, "bolt", b.Name())
	require.NoError(t, b.Close())

	b = NewBackend(config.CacheConfig{Backend: config.CacheBackendNone}, nil)
	assert.Equal(t, "memory", b.Name())
}

func TestOpenBoltBackend_CorruptDatabaseStartsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, BoltFileName)
	require.NoError(t, os.WriteFile(path, []byte("this is not a bolt database"), 0o600))

	b := NewBackend(config.CacheConfig{Dir: dir, Backend: config.CacheBackendBolt}, nil)
	require.Equal(t, "bolt", b.Name())
	t.Cleanup(func() { _ = b.Close() })

	aside, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "this is not a bolt database", string(aside))

	c := Open(ctx, b, Options{})
	assert.Equal(t, 0, c.Len())

	h := HashBytes([]byte("x"))
	c.Store("a.md", h, content("a.md", "<p>a</p>"))
	require.NoError(t, c.Flush(ctx))
	_, ok := Open(ctx, b, Options{}).Lookup("a.md", h)
	assert.True(t, ok)
}

func TestOpenBoltBackend_LockedDatabaseFallsBackToMemory(t *testing.T) {
	prev := boltOpenTimeout
	boltOpenTimeout = 50 * time.Millisecond
	t.Cleanup(func() { boltOpenTimeout = prev })

	dir := t.TempDir()
	held, err := NewBoltBackend(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = held.Close() })

	b := OpenBoltBackend(dir, nil)
	assert.Equal(t, "memory", b.Name())
	_, err = os.Stat(filepath.Join(dir, BoltFileName+".corrupt"))
	assert.True(t, os.IsNotExist(err))
}
