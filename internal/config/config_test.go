package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DOCPIPE_LOG_LEVEL", "")
	cfg, err := Parse([]byte("content_dir: docs\n"))
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.ContentDir)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, DefaultParallelThreshold, cfg.Build.ParallelThreshold)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Build.Workers)
	assert.Equal(t, CacheBackendJSON, cfg.Cache.Backend)
	assert.Equal(t, KeyPolicyContentAndPlugins, cfg.Cache.KeyPolicy)
	assert.Equal(t, DefaultMaxRetries, cfg.Recovery.MaxRetries)
	assert.Equal(t, RetryBackoffLinear, cfg.Recovery.Backoff)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, Names(DefaultPlugins().Transformers), Names(cfg.Plugins.Transformers))
	assert.Equal(t, "", cfg.LinkVerify.Subject)
}

func TestParse_ExplicitValues(t *testing.T) {
	yml := `
content_dir: src
output_dir: out
cache:
  backend: BBolt
  key_policy: content
recovery:
  max_retries: 2
  backoff: exponential
  initial_delay: 10ms
  max_delay: 1s
logging:
  level: debug
  format: json
plugins:
  transformers:
    - name: frontmatter
    - name: markdown
      options:
        gfm: false
  filters: []
linkverify:
  nats_url: nats://localhost:4222
`
	t.Setenv("DOCPIPE_LOG_LEVEL", "")
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, CacheBackendBolt, cfg.Cache.Backend)
	assert.Equal(t, KeyPolicyContent, cfg.Cache.KeyPolicy)
	assert.Equal(t, 2, cfg.Recovery.MaxRetries)
	assert.Equal(t, RetryBackoffExponential, cfg.Recovery.Backoff)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, []string{"frontmatter", "markdown"}, Names(cfg.Plugins.Transformers))
	assert.Equal(t, false, cfg.Plugins.Transformers[1].Options["gfm"])
	assert.Empty(t, cfg.Plugins.Filters)
	assert.NotEmpty(t, cfg.Plugins.Emitters)
	assert.Equal(t, DefaultLinkSubject, cfg.LinkVerify.Subject)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("DOCPIPE_TEST_OUT", "rendered")
	t.Setenv("DOCPIPE_LOG_LEVEL", "warning")
	cfg, err := Parse([]byte("output_dir: ${DOCPIPE_TEST_OUT}\n"))
	require.NoError(t, err)
	assert.Equal(t, "rendered", cfg.OutputDir)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"unknown backend", "cache:\n  backend: redis\n"},
		{"unknown key policy", "cache:\n  key_policy: plugins-only\n"},
		{"unknown backoff", "recovery:\n  backoff: random\n"},
		{"bad duration", "recovery:\n  initial_delay: soon\n"},
		{"max below initial", "recovery:\n  initial_delay: 5s\n  max_delay: 1s\n"},
		{"same dirs", "content_dir: x\noutput_dir: x\n"},
		{"content inside output", "content_dir: out/content\noutput_dir: out\n"},
		{"duplicate plugin", "plugins:\n  filters:\n    - name: drafts\n    - name: drafts\n"},
		{"unnamed plugin", "plugins:\n  emitters:\n    - options: {}\n"},
		{"malformed yaml", "content_dir: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yml))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInit_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", DefaultFile)
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.ErrorIs(t, err, ErrConfigExists)
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultContentDir, cfg.ContentDir)
	assert.Equal(t, Names(DefaultPlugins().Emitters), Names(cfg.Plugins.Emitters))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "key_policy: content+plugins")
}

func TestRecoveryDurations(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "100ms", cfg.Recovery.InitialDelayDuration().String())
	assert.Equal(t, "2s", cfg.Recovery.MaxDelayDuration().String())
	assert.Equal(t, "300ms", cfg.Watch.DebounceDuration().String())
}
