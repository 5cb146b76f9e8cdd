// Package resources loads the files emitters declare they need, from the
// built-in set or from disk, with an LRU in front.
package resources

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

//go:embed builtin/*
var builtinFS embed.FS

// Built-in resource names.
const (
	Layout = "layout"
	Style  = "style"
)

var builtinFiles = map[string]string{
	Layout: "builtin/layout.html",
	Style:  "builtin/style.css",
}

// DefaultCacheSize bounds the number of loaded resources kept in memory.
const DefaultCacheSize = 64

// Builtin returns the embedded resource registered under name.
func Builtin(name string) ([]byte, bool) {
	file, ok := builtinFiles[name]
	if !ok {
		return nil, false
	}
	data, err := builtinFS.ReadFile(file)
	if err != nil {
		return nil, false
	}
	return data, true
}

// BuiltinNames lists the embedded resources, sorted.
func BuiltinNames() []string {
	out := make([]string, 0, len(builtinFiles))
	for n := range builtinFiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Loader resolves resource requests. Relative paths are taken from BaseDir.
// File entries are keyed by path, size and modification time so an edited
// file is read again.
type Loader struct {
	baseDir string
	cache   *lru.Cache[string, []byte]
	logger  *slog.Logger
}

// NewLoader creates a loader with room for size entries.
func NewLoader(baseDir string, size int, logger *slog.Logger) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create resource cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{baseDir: baseDir, cache: c, logger: logger}, nil
}

// Load returns the bytes for req. Failures are classified resource errors so
// the caller can retry them.
func (l *Loader) Load(ctx context.Context, req plugin.ResourceRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, derrors.Canceled(err)
	}
	if req.Path == "" {
		data, ok := Builtin(req.Name)
		if !ok {
			return nil, derrors.ResourceLoadError(req.Name, fmt.Errorf("no built-in resource %q", req.Name)).Build()
		}
		return data, nil
	}

	path := req.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, derrors.ResourceLoadError(req.Name, err).WithContext(derrors.ContextPath, path).Build()
	}
	key := path + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if data, ok := l.cache.Get(key); ok {
		return data, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- resource path comes from plugin configuration
	if err != nil {
		return nil, derrors.ResourceLoadError(req.Name, err).WithContext(derrors.ContextPath, path).Build()
	}
	l.cache.Add(key, data)
	l.logger.Debug("Loaded resource", slog.String("resource", req.Name), logfields.Path(path))
	return data, nil
}

// Len reports how many file resources are cached.
func (l *Loader) Len() int { return l.cache.Len() }
