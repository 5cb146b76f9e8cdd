// Package watch rebuilds the site when the content tree changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one build. *pipeline.Pipeline satisfies it.
type Builder interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Exclude lists absolute directories whose events are ignored, typically
	// the output and cache folders when they live below the content root.
	Exclude []string
	// InitialBuild runs one build before waiting for changes.
	InitialBuild bool
	Logger       *slog.Logger
	// OnBuild is called after every build.
	OnBuild func(*pipeline.Report, error)
}

// Watcher triggers incremental builds after bursts of filesystem events.
type Watcher struct {
	root    string
	builder Builder
	opts    Options
	logger  *slog.Logger
	exclude []string
}

// New returns a watcher over root.
func New(root string, b Builder, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{root: abs, builder: b, opts: opts, logger: logger}
	for _, e := range opts.Exclude {
		if e == "" {
			continue
		}
		if a, err := filepath.Abs(e); err == nil {
			w.exclude = append(w.exclude, a)
		}
	}
	return w, nil
}

// Run watches until ctx is done. Events arriving while a build runs are
// collected and produce one further build.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := w.addDirs(fw, w.root); err != nil {
		return err
	}

	if w.opts.InitialBuild {
		w.build(ctx)
	}
	w.logger.Info("Watching for changes", logfields.Path(w.root), slog.Duration("debounce", w.opts.Debounce))

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.handle(fw, ev) {
				continue
			}
			timer.Reset(w.opts.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		case <-timer.C:
			w.build(ctx)
		}
	}
}

func (w *Watcher) build(ctx context.Context) {
	w.logger.Info("Change detected; rebuilding")
	report, err := w.builder.Run(ctx, pipeline.Request{Mode: pipeline.ModeIncremental})
	if err != nil && ctx.Err() == nil {
		w.logger.Warn("Rebuild failed", logfields.Error(err))
	}
	if w.opts.OnBuild != nil {
		w.opts.OnBuild(report, err)
	}
}

// handle reports whether ev should schedule a build. New directories are
// added to the watch set.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
		return false
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirs(fw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	return true
}

func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, e := range w.exclude {
		if path == e || strings.HasPrefix(path, e+string(filepath.Separator)) {
			return true
		}
	}
	return ignoredName(filepath.Base(path))
}

// ignoredName matches hidden files and editor temp files.
func ignoredName(base string) bool {
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
