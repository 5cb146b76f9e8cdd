// Package git reads per-file commit dates from the repository that contains
// the content tree.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// ErrNoRepository is returned when the content root is not inside a git
// working tree.
var ErrNoRepository = errors.New("content root is not inside a git repository")

// Dates are the first and last commit times touching a file.
type Dates struct {
	Created  time.Time
	Modified time.Time
}

// DateResolver looks up commit dates for content files. Results are memoized
// per file; lookups are serialized because go-git repositories are not safe
// for concurrent use.
type DateResolver struct {
	mu      sync.Mutex
	repo    *git.Repository
	prefix  string
	content pathid.FullPath
	memo    map[pathid.FilePath]Dates
}

// OpenDateResolver opens the repository containing contentDir.
func OpenDateResolver(contentDir pathid.FullPath) (*DateResolver, error) {
	repo, err := git.PlainOpenWithOptions(string(contentDir), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return nil, fmt.Errorf("resolve worktree root: %w", err)
	}
	content, err := filepath.EvalSymlinks(string(contentDir))
	if err != nil {
		return nil, fmt.Errorf("resolve content root: %w", err)
	}
	prefix, err := filepath.Rel(root, content)
	if err != nil {
		return nil, fmt.Errorf("locate content root in worktree: %w", err)
	}
	prefix = filepath.ToSlash(prefix)
	if prefix == "." {
		prefix = ""
	}
	return &DateResolver{repo: repo, prefix: prefix, content: contentDir, memo: map[pathid.FilePath]Dates{}}, nil
}

// Dates returns the commit dates of file. ok is false for files with no
// commits (new or untracked files).
func (r *DateResolver) Dates(ctx context.Context, file pathid.FilePath) (Dates, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.memo[file]; ok {
		return d, !d.Modified.IsZero(), nil
	}

	name := string(file)
	if r.prefix != "" {
		name = r.prefix + "/" + name
	}
	iter, err := r.repo.Log(&git.LogOptions{FileName: &name})
	if err != nil {
		// An empty repository has no HEAD yet.
		r.memo[file] = Dates{}
		return Dates{}, false, nil //nolint:nilerr // unborn HEAD means no history
	}
	defer iter.Close()

	var d Dates
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		when := c.Committer.When.UTC()
		if d.Modified.IsZero() || when.After(d.Modified) {
			d.Modified = when
		}
		if d.Created.IsZero() || when.Before(d.Created) {
			d.Created = when
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return Dates{}, false, fmt.Errorf("read history of %s: %w", file, err)
	}
	r.memo[file] = d
	return d, !d.Modified.IsZero(), nil
}

// Forget drops memoized dates, for example after new commits.
func (r *DateResolver) Forget() {
	r.mu.Lock()
	r.memo = map[pathid.FilePath]Dates{}
	r.mu.Unlock()
}
