// Package cache implements the content-addressed build cache.
//
// The in-memory map is the source of truth during a run. A Backend persists
// snapshots of it between runs; a missing, corrupt or outdated store loads as
// an empty cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// SchemaVersion is bumped whenever the persisted entry layout changes.
// Stores written with another version are discarded on load.
const SchemaVersion = 1

// ContentHash is the lowercase hex SHA-256 of a file's raw bytes.
type ContentHash string

// HashBytes returns the ContentHash of b.
func HashBytes(b []byte) ContentHash {
	sum := sha256.Sum256(b)
	return ContentHash(hex.EncodeToString(sum[:]))
}

// Entry is one cached document.
type Entry struct {
	Hash ContentHash `json:"hash"`
	// Key is the validity token the entry was stored under. It equals Hash
	// under the content policy.
	Key      string          `json:"key"`
	Content  *plugin.Content `json:"content"`
	StoredAt time.Time       `json:"stored_at"`
}

// Options configure a Cache.
type Options struct {
	Policy config.CacheKeyPolicy
	// Fingerprint is the transformer configuration fingerprint mixed into
	// keys under the content+plugins policy.
	Fingerprint string
	// FlushEvery requests a background flush after this many stores (0 = only
	// explicit flushes).
	FlushEvery int
	Logger     *slog.Logger
}

// Stats are the counters of one cache since the last ResetStats.
type Stats struct {
	Hits      int64
	Misses    int64
	Stores    int64
	Evictions int64
	Entries   int
}

// HitRate returns hits/(hits+misses), or 0 without lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache maps file identities to processed content. It is safe for
// concurrent use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[pathid.FilePath]Entry
	generation uint64
	flushedGen uint64
	sinceFlush int

	backend     Backend
	policy      config.CacheKeyPolicy
	fingerprint string
	flushEvery  int
	logger      *slog.Logger

	hits, misses, stores, evictions atomic.Int64

	flushMu sync.Mutex
	flushCh chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// Open loads the cache from backend. Load failures are logged and yield an
// empty cache; Open never fails the build.
func Open(ctx context.Context, backend Backend, opts Options) *Cache {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == "" {
		policy = config.KeyPolicyContentAndPlugins
	}

	c := &Cache{
		entries:     make(map[pathid.FilePath]Entry),
		backend:     backend,
		policy:      policy,
		fingerprint: opts.Fingerprint,
		flushEvery:  opts.FlushEvery,
		logger:      logger,
		flushCh:     make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}

	snap, err := backend.Load(ctx)
	switch {
	case err != nil:
		logger.Warn("Build cache unreadable, starting empty", logfields.Backend(backend.Name()), logfields.Error(err))
	case snap == nil:
		logger.Debug("No build cache found", logfields.Backend(backend.Name()))
	case snap.SchemaVersion != SchemaVersion:
		logger.Warn("Build cache schema mismatch, starting empty",
			logfields.Backend(backend.Name()),
			slog.Int("found", snap.SchemaVersion),
			slog.Int("want", SchemaVersion))
	default:
		for id, e := range snap.Entries {
			if e.Content == nil || e.Key == "" {
				continue
			}
			c.entries[id] = e
		}
		logger.Debug("Loaded build cache", logfields.Backend(backend.Name()), logfields.Files(len(c.entries)))
	}

	if c.flushEvery > 0 {
		c.wg.Add(1)
		go c.flusher()
	}
	return c
}

// Policy returns the active key policy.
func (c *Cache) Policy() config.CacheKeyPolicy { return c.policy }

// Key returns the validity token for hash under the active policy.
func (c *Cache) Key(hash ContentHash) string {
	if c.policy == config.KeyPolicyContent {
		return string(hash)
	}
	sum := sha256.Sum256([]byte(string(hash) + "\x00" + c.fingerprint))
	return hex.EncodeToString(sum[:])
}

// Lookup returns a copy of the cached content for id if it was stored under
// the same validity token. A stale entry is evicted and reported as a miss.
func (c *Cache) Lookup(id pathid.FilePath, hash ContentHash) (*plugin.Content, bool) {
	key := c.Key(hash)

	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()

	if ok && e.Key == key {
		c.hits.Add(1)
		return e.Content.Clone(), true
	}
	c.misses.Add(1)
	if ok {
		c.mu.Lock()
		if cur, still := c.entries[id]; still && cur.Key == e.Key {
			delete(c.entries, id)
			c.generation++
			c.evictions.Add(1)
		}
		c.mu.Unlock()
	}
	return nil, false
}

// Store records content for (id, hash). Storing the same content twice is
// observationally a no-op. The durable write, if due, happens on the
// background flusher; Store only holds the in-memory lock.
func (c *Cache) Store(id pathid.FilePath, hash ContentHash, content *plugin.Content) {
	if content == nil {
		return
	}
	e := Entry{Hash: hash, Key: c.Key(hash), Content: content.Clone(), StoredAt: time.Now().UTC()}
	e.Content.Tree = nil

	c.mu.Lock()
	c.entries[id] = e
	c.generation++
	c.sinceFlush++
	due := c.flushEvery > 0 && c.sinceFlush >= c.flushEvery
	if due {
		c.sinceFlush = 0
	}
	c.mu.Unlock()
	c.stores.Add(1)

	if due {
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
}

// Prune drops entries whose id is not in keep and returns how many were removed.
func (c *Cache) Prune(keep map[pathid.FilePath]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id := range c.entries {
		if _, ok := keep[id]; !ok {
			delete(c.entries, id)
			removed++
		}
	}
	if removed > 0 {
		c.generation++
	}
	return removed
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dirty reports whether the in-memory state differs from the last flush.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation != c.flushedGen
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Stores:    c.stores.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
	}
}

// ResetStats zeroes the lookup and store counters.
func (c *Cache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.stores.Store(0)
	c.evictions.Store(0)
}

// Flush writes a snapshot to the backend if anything changed since the last
// flush.
func (c *Cache) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.RLock()
	if c.generation == c.flushedGen {
		c.mu.RUnlock()
		return nil
	}
	gen := c.generation
	snap := &Snapshot{
		SchemaVersion: SchemaVersion,
		KeyPolicy:     c.policy,
		Fingerprint:   c.fingerprint,
		Entries:       make(map[pathid.FilePath]Entry, len(c.entries)),
	}
	for id, e := range c.entries {
		snap.Entries[id] = e
	}
	c.mu.RUnlock()

	start := time.Now()
	if err := c.backend.Save(ctx, snap); err != nil {
		return err
	}

	c.mu.Lock()
	c.flushedGen = gen
	c.mu.Unlock()
	c.logger.Debug("Flushed build cache",
		logfields.Backend(c.backend.Name()),
		logfields.Files(len(snap.Entries)),
		logfields.Duration(time.Since(start)))
	return nil
}

// Clear drops every entry in memory and in the backend.
func (c *Cache) Clear(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	c.mu.Lock()
	c.entries = make(map[pathid.FilePath]Entry)
	c.generation++
	c.flushedGen = c.generation
	c.mu.Unlock()
	return c.backend.Clear(ctx)
}

// Close stops the background flusher, flushes pending changes and closes the
// backend.
func (c *Cache) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.stop)
	c.wg.Wait()
	flushErr := c.Flush(ctx)
	if err := c.backend.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}

func (c *Cache) flusher() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case <-c.flushCh:
			if err := c.Flush(context.Background()); err != nil {
				c.logger.Warn("Background cache flush failed", logfields.Backend(c.backend.Name()), logfields.Error(err))
			}
		}
	}
}
