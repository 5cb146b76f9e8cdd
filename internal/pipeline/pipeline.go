// Package pipeline runs the incremental build: discovery, per-file
// processing through the transformer chain with cache reuse, filtering,
// graph construction and emission, then cache and manifest persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/docpipe/internal/cache"
	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/git"
	"git.home.luguber.info/inful/docpipe/internal/linkverify"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/metrics"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
	"git.home.luguber.info/inful/docpipe/internal/plugin/builtin"
	"git.home.luguber.info/inful/docpipe/internal/recovery"
	"git.home.luguber.info/inful/docpipe/internal/resources"
	"git.home.luguber.info/inful/docpipe/internal/retry"
	"git.home.luguber.info/inful/docpipe/internal/workerpool"
)

// Request selects the mode of one Run.
type Request struct {
	Mode Mode
	// Force skips cache lookups in ModeFull. Entries are still refreshed.
	Force bool
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	recorder    metrics.Recorder
	observers   []Observer
	publisher   linkverify.Publisher
	catalog     *plugin.Catalog
	backend     cache.Backend
	resourceDir string
	noGit       bool
}

// WithLogger sets the logger (slog.Default otherwise).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRecorder sets the metrics recorder. It is also registered as an
// observer.
func WithRecorder(r metrics.Recorder) Option { return func(o *options) { o.recorder = r } }

// WithObserver adds a lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithPublisher sets the unresolved link publisher. The caller keeps
// ownership and closes it.
func WithPublisher(p linkverify.Publisher) Option { return func(o *options) { o.publisher = p } }

// WithCatalog replaces the built-in plugin catalog.
func WithCatalog(c *plugin.Catalog) Option { return func(o *options) { o.catalog = c } }

// WithCacheBackend replaces the backend selected by cache.backend.
func WithCacheBackend(b cache.Backend) Option { return func(o *options) { o.backend = b } }

// WithResourceDir sets the folder relative resource paths are read from.
func WithResourceDir(dir string) Option { return func(o *options) { o.resourceDir = dir } }

// WithoutGit disables commit date lookups.
func WithoutGit() Option { return func(o *options) { o.noGit = true } }

// Pipeline owns the long-lived state shared by successive builds: the plugin
// manager, the build cache and the resource loader. Runs are serialized.
type Pipeline struct {
	cfg        *config.Config
	contentDir pathid.FullPath
	outputDir  pathid.FullPath
	cacheDir   pathid.FullPath

	plugins  *plugin.Manager
	cache    *cache.Cache
	loader   *resources.Loader
	pool     *workerpool.Pool
	recovery *recovery.Handler
	dates    *git.DateResolver

	recorder  metrics.Recorder
	observer  observers
	publisher linkverify.Publisher
	ownsPub   bool
	logger    *slog.Logger

	state   *StateMachine
	runMu   sync.Mutex
	retries atomic.Int64
}

// New prepares a pipeline for cfg. cfg must be defaulted and validated.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := options{resourceDir: "."}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := o.recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	p := &Pipeline{cfg: cfg, logger: logger, recorder: recorder}
	var err error
	if p.contentDir, err = absDir(cfg.ContentDir); err != nil {
		return nil, err
	}
	if p.outputDir, err = absDir(cfg.OutputDir); err != nil {
		return nil, err
	}
	if p.cacheDir, err = absDir(cfg.Cache.Dir); err != nil {
		return nil, err
	}

	p.state = NewStateMachine(func(from, to State) {
		logger.Debug("Pipeline state changed", slog.String("from", string(from)), logfields.State(string(to)))
	})

	catalog := o.catalog
	if catalog == nil {
		var deps builtin.Deps
		if !o.noGit {
			p.dates = openDates(p.contentDir, logger)
			if p.dates != nil {
				deps.Dates = p.dates
			}
		}
		catalog = builtin.Catalog(deps)
	}
	if p.plugins, err = catalog.Build(cfg.Plugins, logger); err != nil {
		return nil, err
	}

	backend := o.backend
	if backend == nil {
		bc := cfg.Cache
		bc.Dir = string(p.cacheDir)
		backend = cache.NewBackend(bc, logger)
	}
	p.cache = cache.Open(ctx, backend, cache.Options{
		Policy:      cfg.Cache.KeyPolicy,
		Fingerprint: p.plugins.Fingerprint(),
		FlushEvery:  cfg.Cache.FlushEvery,
		Logger:      logger,
	})

	if p.loader, err = resources.NewLoader(o.resourceDir, resources.DefaultCacheSize, logger); err != nil {
		return nil, err
	}

	p.pool = workerpool.New(workerpool.Options{
		Workers:   cfg.Build.Workers,
		Threshold: cfg.Build.ParallelThreshold,
		ChunkSize: cfg.Build.ChunkSize,
		Logger:    logger,
		OnActive:  recorder.SetWorkerConcurrency,
	})

	p.recovery = recovery.NewHandler(retry.FromConfig(cfg.Recovery), logger).OnRetry(func(k recovery.Kind) {
		p.retries.Add(1)
		recorder.IncRetry(string(k))
	})

	p.observer = append(observers{RecorderObserver{Recorder: recorder}}, o.observers...)

	p.publisher = o.publisher
	if p.publisher == nil && cfg.LinkVerify.NATSURL != "" {
		pub, err := linkverify.NewNATSPublisher(cfg.LinkVerify)
		if err != nil {
			logger.Warn("Link verification disabled", logfields.Error(err))
		} else {
			p.publisher, p.ownsPub = pub, true
		}
	}
	return p, nil
}

func absDir(dir string) (pathid.FullPath, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", derrors.ConfigError(fmt.Sprintf("resolve %s", dir)).WithCause(err).Build()
	}
	return pathid.FullPath(abs), nil
}

func openDates(contentDir pathid.FullPath, logger *slog.Logger) *git.DateResolver {
	r, err := git.OpenDateResolver(contentDir)
	switch {
	case errors.Is(err, git.ErrNoRepository):
		logger.Debug("Content is not in a git repository; git dates disabled")
		return nil
	case err != nil:
		logger.Warn("Git dates disabled", logfields.Error(err))
		return nil
	}
	return r
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state.Current() }

// Cache exposes the build cache, for statistics.
func (p *Pipeline) Cache() *cache.Cache { return p.cache }

// Plugins exposes the plugin manager.
func (p *Pipeline) Plugins() *plugin.Manager { return p.plugins }

// ContentDir is the absolute content root.
func (p *Pipeline) ContentDir() pathid.FullPath { return p.contentDir }

// OutputDir is the absolute output root.
func (p *Pipeline) OutputDir() pathid.FullPath { return p.outputDir }

// CacheDir is the absolute cache folder.
func (p *Pipeline) CacheDir() pathid.FullPath { return p.cacheDir }

// Close flushes and closes the cache and any publisher the pipeline opened.
func (p *Pipeline) Close(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	err := p.cache.Close(ctx)
	if p.ownsPub && p.publisher != nil {
		err = errors.Join(err, p.publisher.Close())
	}
	return err
}
