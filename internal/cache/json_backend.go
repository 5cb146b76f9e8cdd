package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
)

// JSONFileName is the cache file written below the cache directory.
const JSONFileName = "docpipe-cache.json"

// JSONFileBackend stores the snapshot as a single JSON document. Writes go to
// a temporary file that is renamed over the previous one.
type JSONFileBackend struct {
	path string
}

// NewJSONFileBackend returns a backend writing dir/docpipe-cache.json.
func NewJSONFileBackend(dir string) *JSONFileBackend {
	return &JSONFileBackend{path: filepath.Join(dir, JSONFileName)}
}

func (b *JSONFileBackend) Name() string { return "json" }

// Path returns the cache file location.
func (b *JSONFileBackend) Path() string { return b.path }

func (b *JSONFileBackend) Load(context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, derrors.CacheError("read cache file", err).WithContext(derrors.ContextPath, b.path).Build()
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, derrors.CacheError("decode cache file", err).WithContext(derrors.ContextPath, b.path).Build()
	}
	return &snap, nil
}

func (b *JSONFileBackend) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return derrors.CacheError("encode cache", err).Build()
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return derrors.CacheError("create cache directory", err).WithContext(derrors.ContextPath, dir).Build()
	}
	tmp, err := os.CreateTemp(dir, JSONFileName+".*.tmp")
	if err != nil {
		return derrors.CacheError("create temp cache file", err).WithContext(derrors.ContextPath, dir).Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return derrors.CacheError("write cache file", err).WithContext(derrors.ContextPath, tmpName).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return derrors.CacheError("close cache file", err).WithContext(derrors.ContextPath, tmpName).Build()
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		_ = os.Remove(tmpName)
		return derrors.CacheError(fmt.Sprintf("replace %s", b.path), err).Build()
	}
	return nil
}

func (b *JSONFileBackend) Clear(context.Context) error {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return derrors.CacheError("remove cache file", err).WithContext(derrors.ContextPath, b.path).Build()
	}
	return nil
}

func (b *JSONFileBackend) Close() error { return nil }
