package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

func commitFile(t *testing.T, repo *git.Repository, root, rel, body string, when time.Time) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(rel)
	require.NoError(t, err)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	_, err = wt.Commit("update "+rel, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
}

func TestDateResolver(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	first := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	second := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	commitFile(t, repo, root, "content/a.md", "one", first)
	commitFile(t, repo, root, "content/b.md", "b", first.Add(time.Hour))
	commitFile(t, repo, root, "content/a.md", "two", second)

	r, err := OpenDateResolver(pathid.FullPath(filepath.Join(root, "content")))
	require.NoError(t, err)

	d, ok, err := r.Dates(context.Background(), "a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.Created.Equal(first))
	assert.True(t, d.Modified.Equal(second))

	d, ok, err = r.Dates(context.Background(), "b.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.Created.Equal(d.Modified))

	_, ok, err = r.Dates(context.Background(), "untracked.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenDateResolverOutsideRepository(t *testing.T) {
	_, err := OpenDateResolver(pathid.FullPath(t.TempDir()))
	require.ErrorIs(t, err, ErrNoRepository)
}
