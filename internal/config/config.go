// Package config loads and validates docpipe configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "docpipe.yaml"

// Config represents the application configuration.
type Config struct {
	ContentDir string   `yaml:"content_dir"`
	OutputDir  string   `yaml:"output_dir"`
	Ignore     []string `yaml:"ignore,omitempty"`

	Site       SiteConfig       `yaml:"site"`
	Build      BuildConfig      `yaml:"build"`
	Cache      CacheConfig      `yaml:"cache"`
	Plugins    PluginsConfig    `yaml:"plugins"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
	History    HistoryConfig    `yaml:"history,omitempty"`
	LinkVerify LinkVerifyConfig `yaml:"linkverify,omitempty"`
	Watch      WatchConfig      `yaml:"watch,omitempty"`
}

// SiteConfig carries site-wide values consumed by emitters.
type SiteConfig struct {
	Title   string `yaml:"title"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// BuildConfig controls scheduling of the processing stage.
type BuildConfig struct {
	// ParallelThreshold is the file count at which processing switches from
	// sequential to the worker pool.
	ParallelThreshold int `yaml:"parallel_threshold"`
	// Workers bounds concurrent chunk tasks (0 = GOMAXPROCS).
	Workers int `yaml:"workers,omitempty"`
	// ChunkSize fixes the files per chunk (0 = derived from file count and workers).
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// CleanOutput removes the output directory before emitting.
	CleanOutput bool `yaml:"clean_output"`
}

// CacheConfig controls the persistent build cache.
type CacheConfig struct {
	Dir        string         `yaml:"dir"`
	Backend    CacheBackend   `yaml:"backend"`
	KeyPolicy  CacheKeyPolicy `yaml:"key_policy"`
	FlushEvery int            `yaml:"flush_every,omitempty"`
}

// PluginsConfig lists plugin descriptors per category, in execution order.
type PluginsConfig struct {
	Transformers []PluginSpec `yaml:"transformers"`
	Filters      []PluginSpec `yaml:"filters"`
	Emitters     []PluginSpec `yaml:"emitters"`
}

// PluginSpec names a built-in plugin and its options.
type PluginSpec struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// RecoveryConfig bounds retries for recoverable failures.
type RecoveryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls Prometheus output. An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig controls the SQLite build history. An empty Path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LinkVerifyConfig controls publication of unresolved link events. An empty
// NATSURL disables it.
type LinkVerifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"`
}

// InitialDelayDuration parses InitialDelay; callers run Validate first.
func (r RecoveryConfig) InitialDelayDuration() time.Duration {
	d, _ := time.ParseDuration(r.InitialDelay)
	return d
}

// MaxDelayDuration parses MaxDelay; callers run Validate first.
func (r RecoveryConfig) MaxDelayDuration() time.Duration {
	d, _ := time.ParseDuration(r.MaxDelay)
	return d
}

// DebounceDuration parses Debounce; callers run Validate first.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(w.Debounce)
	return d
}

// Load reads, expands, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path) // #nosec G304 -- path is the user supplied config file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration after ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
