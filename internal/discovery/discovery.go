// Package discovery finds the source documents and assets below a content root.
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// IgnoreFile holds extra ignore patterns, one per line, at the content root.
const IgnoreFile = ".docpipeignore"

// DocumentExts are the extensions treated as documents; everything else is
// an asset.
var DocumentExts = []string{".md", ".markdown"}

// File is one discovered source file.
type File struct {
	Full    pathid.FullPath
	Path    pathid.FilePath
	IsAsset bool
}

// Options tunes a walk.
type Options struct {
	// Ignore holds doublestar patterns matched against FilePaths. A pattern
	// matching a folder skips the whole subtree.
	Ignore []string
	// Exclude lists absolute directories never descended into, such as an
	// output or cache directory nested in the content root.
	Exclude []pathid.FullPath
	Logger  *slog.Logger
}

// Walk lists the files below root, sorted by FilePath. Hidden files and
// folders are skipped. A missing root is a filesystem error; an empty root
// yields no files.
func Walk(ctx context.Context, root pathid.FullPath, opts Options) ([]File, error) {
	info, err := os.Stat(string(root))
	if err != nil {
		return nil, derrors.FileSystemError(fmt.Sprintf("content directory %s", root), err).
			WithContext(derrors.ContextPath, string(root)).Build()
	}
	if !info.IsDir() {
		return nil, derrors.FileSystemError(fmt.Sprintf("content directory %s is not a directory", root), nil).Build()
	}

	patterns, err := loadIgnoreFile(root)
	if err != nil {
		return nil, err
	}
	patterns = append(append([]string(nil), opts.Ignore...), patterns...)

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, e := range opts.Exclude {
		excluded[filepath.Clean(string(e))] = struct{}{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var files []File
	err = filepath.WalkDir(string(root), func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if full == string(root) {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, ok := excluded[filepath.Clean(full)]; ok {
				return filepath.SkipDir
			}
		}

		rel, err := pathid.Rel(root, pathid.FullPath(full))
		if err != nil {
			return err
		}
		if ignored(patterns, rel) {
			logger.Debug("Ignoring path", logfields.File(string(rel)))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		files = append(files, File{Full: pathid.FullPath(full), Path: rel, IsAsset: !IsDocument(rel)})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, derrors.Canceled(ctx.Err())
		}
		return nil, derrors.FileSystemError("walk content directory", err).
			WithContext(derrors.ContextPath, string(root)).Build()
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	logger.Debug("Discovery finished", logfields.Files(len(files)), logfields.Path(string(root)))
	return files, nil
}

// IsDocument reports whether p has a document extension.
func IsDocument(p pathid.FilePath) bool {
	ext := p.Ext()
	for _, e := range DocumentExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Split separates documents from assets, preserving order.
func Split(files []File) (docs, assets []File) {
	for _, f := range files {
		if f.IsAsset {
			assets = append(assets, f)
		} else {
			docs = append(docs, f)
		}
	}
	return docs, assets
}

func ignored(patterns []string, rel pathid.FilePath) bool {
	name := string(rel)
	base := filepath.Base(name)
	for _, p := range patterns {
		// Patterns without a slash match at any depth, like .gitignore.
		target := name
		if !strings.Contains(p, "/") {
			target = base
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

func loadIgnoreFile(root pathid.FullPath) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(string(root), IgnoreFile)) // #nosec G304 -- fixed name below content root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, derrors.FileSystemError("read "+IgnoreFile, err).Build()
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.TrimSuffix(line, "/"))
	}
	return out, nil
}
