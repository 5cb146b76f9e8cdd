// Package commands implements the docpipe subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/eventstore"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/metrics"
	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives user facing output; stdout when nil.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docpipe.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run one build of the content directory"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild incrementally whenever content changes"`
	Cache   CacheCmd   `cmd:"" help:"Inspect or clear the build cache"`
	History HistoryCmd `cmd:"" help:"Show recorded builds"`
	Init    InitCmd    `cmd:"" help:"Write a default configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the configuration and reconfigures the default logger
// from its logging section.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "load configuration").
			WithContext(derrors.ContextPath, root.Config).
			Fatal().
			Build()
	}
	slog.SetDefault(newLogger(cfg.Logging, root.Verbose, os.Stderr))
	return cfg, nil
}

func newLogger(lc config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openPipeline wires the configured recorder and history store into a
// pipeline. The returned cleanup closes everything opened here.
func openPipeline(ctx context.Context, root *CLI, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	logger := slog.Default()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithResourceDir(filepath.Dir(root.Config)),
	}
	if cfg.Metrics.Textfile != "" {
		opts = append(opts, pipeline.WithRecorder(metrics.NewPrometheusRecorder(nil)))
	}

	var store *eventstore.SQLiteStore
	if cfg.History.Path != "" {
		s, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			logger.Warn("Build history disabled", slog.String("error", err.Error()))
		} else {
			store = s
			opts = append(opts, pipeline.WithObserver(eventstore.NewObserver(store, nil, logger)))
		}
	}

	p, err := pipeline.New(ctx, cfg, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		if err := p.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close pipeline", slog.String("error", err.Error()))
		}
		if store != nil {
			_ = store.Close()
		}
	}
	return p, cleanup, nil
}

// reportError maps a finished build onto the CLI error contract: nil for
// success, a partial failure error when units failed.
func reportError(r *pipeline.Report, err error) error {
	if err != nil {
		return err
	}
	if r != nil && r.Status == pipeline.StatusPartial {
		return derrors.NewError(derrors.CategoryPlugin, "build finished with failures").
			WithContext("failures", len(r.Failures)).
			Warning().
			Build()
	}
	return nil
}
