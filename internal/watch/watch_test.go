package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

type countingBuilder struct {
	mu    sync.Mutex
	modes []pipeline.Mode
	n     atomic.Int64
}

func (b *countingBuilder) Run(_ context.Context, req pipeline.Request) (*pipeline.Report, error) {
	b.mu.Lock()
	b.modes = append(b.modes, req.Mode)
	b.mu.Unlock()
	b.n.Add(1)
	return &pipeline.Report{Status: pipeline.StatusSuccess}, nil
}

func start(t *testing.T, root string, b Builder, opts Options) (cancel func(), done <-chan error) {
	t.Helper()
	w, err := New(root, b, opts)
	require.NoError(t, err)
	ctx, stop := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() {
		ch <- w.Run(ctx)
		close(ch)
	}()
	t.Cleanup(func() {
		stop()
		<-ch
	})
	return stop, ch
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	b := &countingBuilder{}
	var reports atomic.Int64
	start(t, root, b, Options{
		Debounce:     50 * time.Millisecond,
		InitialBuild: true,
		OnBuild:      func(*pipeline.Report, error) { reports.Add(1) },
	})
	require.Eventually(t, func() bool { return b.n.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte{byte('a' + i)}, 0o644))
	}
	require.Eventually(t, func() bool { return b.n.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(2), b.n.Load())
	assert.Equal(t, int64(2), reports.Load())

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.modes {
		assert.Equal(t, pipeline.ModeIncremental, m)
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	b := &countingBuilder{}
	start(t, root, b, Options{Debounce: 30 * time.Millisecond})

	sub := filepath.Join(root, "guides")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return b.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Give the watcher time to register the new folder.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.md"), []byte("# x"), 0o644))
	require.Eventually(t, func() bool { return b.n.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresExcludedAndHidden(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "public")
	require.NoError(t, os.Mkdir(out, 0o755))
	b := &countingBuilder{}
	start(t, root, b, Options{Debounce: 20 * time.Millisecond, Exclude: []string{out}})

	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md.swp"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, b.n.Load())
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	stop, done := start(t, t.TempDir(), &countingBuilder{}, Options{})
	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestIgnoredName(t *testing.T) {
	for _, n := range []string{".git", "a.md~", "a.swp", "#a.md#", "Thumbs.db"} {
		assert.True(t, ignoredName(n), n)
	}
	for _, n := range []string{"a.md", "img.png", "notes#1.md"} {
		assert.False(t, ignoredName(n), n)
	}
}

func TestNew_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "nope"), &countingBuilder{}, Options{})
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}
