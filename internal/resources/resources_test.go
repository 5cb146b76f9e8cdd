package resources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{Layout, Style}, BuiltinNames())
	for _, n := range BuiltinNames() {
		data, ok := Builtin(n)
		require.True(t, ok, n)
		assert.NotEmpty(t, data)
	}
	_, ok := Builtin("nope")
	assert.False(t, ok)
}

func TestLoadBuiltin(t *testing.T) {
	l, err := NewLoader(t.TempDir(), 0, nil)
	require.NoError(t, err)
	data, err := l.Load(context.Background(), plugin.ResourceRequest{Name: Layout})
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")

	_, err = l.Load(context.Background(), plugin.ResourceRequest{Name: "missing"})
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryResource))
}

func TestLoadFileCachesAndRefreshes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.html")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	l, err := NewLoader(dir, 4, nil)
	require.NoError(t, err)
	req := plugin.ResourceRequest{Name: Layout, Path: "layout.html"}

	data, err := l.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.Equal(t, 1, l.Len())

	_, err = l.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())

	require.NoError(t, os.WriteFile(path, []byte("v2 longer"), 0o600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	data, err = l.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v2 longer", string(data))
}

func TestLoadMissingFileIsRetryable(t *testing.T) {
	l, err := NewLoader(t.TempDir(), 4, nil)
	require.NoError(t, err)
	_, err = l.Load(context.Background(), plugin.ResourceRequest{Name: Layout, Path: "nope.html"})
	require.Error(t, err)
	ce, ok := derrors.AsClassified(err)
	require.True(t, ok)
	assert.True(t, ce.CanRetry())
}

func TestLoadCanceled(t *testing.T) {
	l, err := NewLoader(t.TempDir(), 4, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, plugin.ResourceRequest{Name: Layout})
	assert.True(t, derrors.HasCategory(err, derrors.CategoryCanceled))
}
