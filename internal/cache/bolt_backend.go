package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// BoltFileName is the database written below the cache directory.
const BoltFileName = "docpipe-cache.db"

// boltOpenTimeout bounds the wait for the database file lock.
var boltOpenTimeout = 5 * time.Second

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")

	metaSchema      = []byte("schema_version")
	metaPolicy      = []byte("key_policy")
	metaFingerprint = []byte("fingerprint")
)

// BoltBackend stores one JSON encoded entry per key in a bbolt database.
type BoltBackend struct {
	db   *bbolt.DB
	path string
}

// NewBoltBackend opens (creating if needed) dir/docpipe-cache.db.
func NewBoltBackend(dir string) (*BoltBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, derrors.CacheError("create cache directory", err).WithContext(derrors.ContextPath, dir).Build()
	}
	path := filepath.Join(dir, BoltFileName)
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, derrors.CacheError("open cache database", err).WithContext(derrors.ContextPath, path).Build()
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, derrors.CacheError("initialize cache database", err).WithContext(derrors.ContextPath, path).Build()
	}
	return &BoltBackend{db: db, path: path}, nil
}

// OpenBoltBackend is NewBoltBackend for callers that must not fail. An
// unreadable database is moved to docpipe-cache.db.corrupt and recreated; a
// database that still cannot be opened (for example, locked by another
// process) degrades to a MemoryBackend.
func OpenBoltBackend(dir string, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b, err := NewBoltBackend(dir)
	if err == nil {
		return b
	}
	path := filepath.Join(dir, BoltFileName)
	if !errors.Is(err, bbolt.ErrTimeout) {
		if _, statErr := os.Stat(path); statErr == nil {
			aside := path + ".corrupt"
			if renameErr := os.Rename(path, aside); renameErr == nil {
				logger.Warn("Cache database unreadable; moved aside and starting empty",
					logfields.Path(path), slog.String("moved_to", aside), logfields.Error(err))
				if b, err = NewBoltBackend(dir); err == nil {
					return b
				}
			}
		}
	}
	logger.Warn("Cache database unavailable; using in-memory cache for this run",
		logfields.Path(path), logfields.Error(err))
	return NewMemoryBackend()
}

func (b *BoltBackend) Name() string { return "bolt" }

func (b *BoltBackend) Load(context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := b.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		raw := meta.Get(metaSchema)
		if raw == nil {
			return nil
		}
		version, err := strconv.Atoi(string(raw))
		if err != nil {
			return err
		}
		snap = &Snapshot{
			SchemaVersion: version,
			KeyPolicy:     config.CacheKeyPolicy(meta.Get(metaPolicy)),
			Fingerprint:   string(meta.Get(metaFingerprint)),
			Entries:       make(map[pathid.FilePath]Entry),
		}
		if version != SchemaVersion {
			return nil
		}
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			snap.Entries[pathid.FilePath(k)] = e
			return nil
		})
	})
	if err != nil {
		return nil, derrors.CacheError("load cache database", err).WithContext(derrors.ContextPath, b.path).Build()
	}
	return snap, nil
}

func (b *BoltBackend) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		entries, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}
		for id, e := range snap.Entries {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := entries.Put([]byte(id), data); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(metaSchema, []byte(strconv.Itoa(snap.SchemaVersion))); err != nil {
			return err
		}
		if err := meta.Put(metaPolicy, []byte(snap.KeyPolicy)); err != nil {
			return err
		}
		return meta.Put(metaFingerprint, []byte(snap.Fingerprint))
	})
	if err != nil {
		return derrors.CacheError("save cache database", err).WithContext(derrors.ContextPath, b.path).Build()
	}
	return nil
}

func (b *BoltBackend) Clear(context.Context) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntries, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return derrors.CacheError("clear cache database", err).WithContext(derrors.ContextPath, b.path).Build()
	}
	return nil
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
