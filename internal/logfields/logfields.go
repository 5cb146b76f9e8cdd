package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyPhase      = "phase"
	KeyPlugin     = "plugin"
	KeyPluginKind = "plugin_kind"
	KeyFile       = "file"
	KeySlug       = "slug"
	KeyPath       = "path"
	KeyChunk      = "chunk"
	KeyWorkers    = "workers"
	KeyFiles      = "files"
	KeyArtifacts  = "artifacts"
	KeyCacheHit   = "cache_hit"
	KeyBackend    = "backend"
	KeyTarget     = "target"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(name string) slog.Attr     { return slog.String(KeyState, name) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func PluginKind(k string) slog.Attr   { return slog.String(KeyPluginKind, k) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Chunk(i int) slog.Attr           { return slog.Int(KeyChunk, i) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Artifacts(n int) slog.Attr       { return slog.Int(KeyArtifacts, n) }
func CacheHit(hit bool) slog.Attr     { return slog.Bool(KeyCacheHit, hit) }
func Backend(name string) slog.Attr   { return slog.String(KeyBackend, name) }
func Target(ref string) slog.Attr     { return slog.String(KeyTarget, ref) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration records d as fractional milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
