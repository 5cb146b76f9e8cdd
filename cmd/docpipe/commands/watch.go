package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docpipe/internal/pipeline"
	"git.home.luguber.info/inful/docpipe/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period before a rebuild (overrides watch.debounce)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := openPipeline(ctx, root, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	debounce := cfg.Watch.DebounceDuration()
	if w.Debounce > 0 {
		debounce = w.Debounce
	}
	watcher, err := watch.New(string(p.ContentDir()), p, watch.Options{
		Debounce:     debounce,
		Exclude:      []string{string(p.OutputDir()), string(p.CacheDir())},
		InitialBuild: true,
		OnBuild: func(r *pipeline.Report, _ error) {
			if r != nil {
				_, _ = fmt.Fprint(g.out(), r.Summary())
			}
		},
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}
