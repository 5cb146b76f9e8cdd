package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/docpipe/internal/cache"
	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
)

// CacheCmd groups the cache subcommands.
type CacheCmd struct {
	Stats CacheStatsCmd `cmd:"" help:"Show cache location and entry count"`
	Clear CacheClearCmd `cmd:"" help:"Remove every cache entry"`
}

// CacheStatsCmd implements 'cache stats'.
type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ctx := context.Background()
	bc, store, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(ctx) }()

	out := g.out()
	_, _ = fmt.Fprintf(out, "backend:    %s\n", bc.Backend)
	_, _ = fmt.Fprintf(out, "directory:  %s\n", bc.Dir)
	_, _ = fmt.Fprintf(out, "key policy: %s\n", store.Policy())
	_, _ = fmt.Fprintf(out, "entries:    %d\n", store.Len())
	return nil
}

// CacheClearCmd implements 'cache clear'.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ctx := context.Background()
	_, store, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(ctx) }()

	n := store.Len()
	if err := store.Clear(ctx); err != nil {
		return derrors.CacheError("clear build cache", err).Build()
	}
	_, _ = fmt.Fprintf(g.out(), "removed %d cache entries\n", n)
	return nil
}

func openCache(ctx context.Context, cfg *config.Config) (config.CacheConfig, *cache.Cache, error) {
	bc := cfg.Cache
	abs, err := filepath.Abs(bc.Dir)
	if err != nil {
		return bc, nil, derrors.FileSystemError("resolve cache directory", err).Build()
	}
	bc.Dir = abs
	backend := cache.NewBackend(bc, slog.Default())
	return bc, cache.Open(ctx, backend, cache.Options{Policy: bc.KeyPolicy}), nil
}
