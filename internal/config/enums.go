package config

import (
	"git.home.luguber.info/inful/docpipe/internal/foundation/normalization"
)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

// NormalizeRetryBackoff maps user input onto a backoff mode (linear when unknown).
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}

// CacheBackend selects the durable store behind the build cache.
type CacheBackend string

const (
	CacheBackendJSON CacheBackend = "json"
	CacheBackendBolt CacheBackend = "bolt"
	// CacheBackendNone keeps the cache in memory for the duration of one run.
	CacheBackendNone CacheBackend = "none"
)

var cacheBackendNormalizer = normalization.NewNormalizer(map[string]CacheBackend{
	"json":   CacheBackendJSON,
	"bolt":   CacheBackendBolt,
	"bbolt":  CacheBackendBolt,
	"none":   CacheBackendNone,
	"memory": CacheBackendNone,
}, CacheBackendJSON)

// CacheKeyPolicy decides what invalidates a cache entry.
type CacheKeyPolicy string

const (
	// KeyPolicyContent validates entries by content hash only.
	KeyPolicyContent CacheKeyPolicy = "content"
	// KeyPolicyContentAndPlugins also folds the transformer configuration
	// fingerprint into the validity token.
	KeyPolicyContentAndPlugins CacheKeyPolicy = "content+plugins"
)

var keyPolicyNormalizer = normalization.NewNormalizer(map[string]CacheKeyPolicy{
	"content":         KeyPolicyContent,
	"content+plugins": KeyPolicyContentAndPlugins,
	"plugins":         KeyPolicyContentAndPlugins,
}, KeyPolicyContentAndPlugins)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps user input onto a log level (info when unknown).
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)
