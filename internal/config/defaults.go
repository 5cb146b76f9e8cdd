package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

const (
	DefaultContentDir        = "content"
	DefaultOutputDir         = "public"
	DefaultCacheDir          = ".docpipe-cache"
	DefaultParallelThreshold = 128
	DefaultMaxRetries        = 1
	DefaultInitialDelay      = "100ms"
	DefaultMaxDelay          = "2s"
	DefaultDebounce          = "300ms"
	DefaultLinkSubject       = "docpipe.links.unresolved"
	DefaultSiteTitle         = "Documentation"
)

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&pathsDefaultApplier{},
		&buildDefaultApplier{},
		&cacheDefaultApplier{},
		&pluginsDefaultApplier{},
		&recoveryDefaultApplier{},
		&loggingDefaultApplier{},
		&auxDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("apply %s defaults: %w", a.Domain(), err)
		}
	}
	return nil
}

type pathsDefaultApplier struct{}

func (pathsDefaultApplier) Domain() string { return "paths" }

func (pathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.ContentDir) == "" {
		cfg.ContentDir = DefaultContentDir
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = DefaultSiteTitle
	}
	cfg.Site.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.Site.BaseURL), "/")
	return nil
}

type buildDefaultApplier struct{}

func (buildDefaultApplier) Domain() string { return "build" }

func (buildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.ParallelThreshold <= 0 {
		cfg.Build.ParallelThreshold = DefaultParallelThreshold
	}
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Build.ChunkSize < 0 {
		cfg.Build.ChunkSize = 0
	}
	return nil
}

type cacheDefaultApplier struct{}

func (cacheDefaultApplier) Domain() string { return "cache" }

func (cacheDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	backend, err := cacheBackendNormalizer.Parse("cache.backend", string(cfg.Cache.Backend))
	if err != nil {
		return err
	}
	cfg.Cache.Backend = backend
	policy, err := keyPolicyNormalizer.Parse("cache.key_policy", string(cfg.Cache.KeyPolicy))
	if err != nil {
		return err
	}
	cfg.Cache.KeyPolicy = policy
	if cfg.Cache.FlushEvery < 0 {
		cfg.Cache.FlushEvery = 0
	}
	return nil
}

type pluginsDefaultApplier struct{}

func (pluginsDefaultApplier) Domain() string { return "plugins" }

// ApplyDefaults fills each plugin category that was omitted entirely. An
// explicitly empty list (`filters: []`) is respected.
func (pluginsDefaultApplier) ApplyDefaults(cfg *Config) error {
	def := DefaultPlugins()
	if cfg.Plugins.Transformers == nil {
		cfg.Plugins.Transformers = def.Transformers
	}
	if cfg.Plugins.Filters == nil {
		cfg.Plugins.Filters = def.Filters
	}
	if cfg.Plugins.Emitters == nil {
		cfg.Plugins.Emitters = def.Emitters
	}
	return nil
}

type recoveryDefaultApplier struct{}

func (recoveryDefaultApplier) Domain() string { return "recovery" }

func (recoveryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Recovery.MaxRetries < 0 {
		cfg.Recovery.MaxRetries = 0
	}
	if cfg.Recovery.MaxRetries == 0 {
		cfg.Recovery.MaxRetries = DefaultMaxRetries
	}
	mode, err := retryBackoffNormalizer.Parse("recovery.backoff", string(cfg.Recovery.Backoff))
	if err != nil {
		return err
	}
	cfg.Recovery.Backoff = mode
	if cfg.Recovery.InitialDelay == "" {
		cfg.Recovery.InitialDelay = DefaultInitialDelay
	}
	if cfg.Recovery.MaxDelay == "" {
		cfg.Recovery.MaxDelay = DefaultMaxDelay
	}
	return nil
}

type loggingDefaultApplier struct{}

func (loggingDefaultApplier) Domain() string { return "logging" }

func (loggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	raw := string(cfg.Logging.Level)
	if env := os.Getenv("DOCPIPE_LOG_LEVEL"); env != "" {
		raw = env
	}
	cfg.Logging.Level = NormalizeLogLevel(raw)
	format, err := logFormatNormalizer.Parse("logging.format", string(cfg.Logging.Format))
	if err != nil {
		return err
	}
	cfg.Logging.Format = format
	return nil
}

type auxDefaultApplier struct{}

func (auxDefaultApplier) Domain() string { return "auxiliary" }

func (auxDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.LinkVerify.NATSURL != "" && cfg.LinkVerify.Subject == "" {
		cfg.LinkVerify.Subject = DefaultLinkSubject
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultDebounce
	}
	return nil
}
