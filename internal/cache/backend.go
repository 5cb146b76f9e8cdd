package cache

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// Snapshot is the persisted form of a cache.
type Snapshot struct {
	SchemaVersion int                       `json:"schema_version"`
	KeyPolicy     config.CacheKeyPolicy     `json:"key_policy"`
	Fingerprint   string                    `json:"fingerprint"`
	Entries       map[pathid.FilePath]Entry `json:"entries"`
}

// Backend persists cache snapshots.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Load returns the stored snapshot, or nil when nothing is stored.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error
	// Clear removes the stored snapshot.
	Clear(ctx context.Context) error
	Close() error
}

// MemoryBackend keeps the last snapshot in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	snap *Snapshot
	// Saves counts successful Save calls.
	Saves int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	cp.Entries = make(map[pathid.FilePath]Entry, len(m.snap.Entries))
	for k, v := range m.snap.Entries {
		cp.Entries[k] = v
	}
	return &cp, nil
}

func (m *MemoryBackend) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.Saves++
	return nil
}

func (m *MemoryBackend) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// NewBackend returns the backend selected by cfg. It never fails: a durable
// store that cannot be opened degrades to an empty one.
func NewBackend(cfg config.CacheConfig, logger *slog.Logger) Backend {
	switch cfg.Backend {
	case config.CacheBackendBolt:
		return OpenBoltBackend(cfg.Dir, logger)
	case config.CacheBackendNone:
		return NewMemoryBackend()
	default:
		return NewJSONFileBackend(cfg.Dir)
	}
}
