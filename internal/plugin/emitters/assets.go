package emitters

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// StyleResource is the resource name of the site stylesheet.
const StyleResource = "style"

// StyleFile is where the stylesheet is written; the layout links to it.
const StyleFile = "static/docpipe.css"

// Assets copies non-document files to the output and writes the stylesheet.
// Folder segments are slugified like document slugs so relative references
// from pages keep working; file names are kept.
type Assets struct {
	plugin.Base
}

// NewAssets is the catalog constructor. Options: style (stylesheet path).
func NewAssets(opts plugin.Options) (plugin.Plugin, error) {
	return &Assets{Base: plugin.NewBase("assets", "1", plugin.KindEmitter, opts)}, nil
}

func (e *Assets) Resources() []plugin.ResourceRequest {
	return []plugin.ResourceRequest{{Name: StyleResource, Path: e.Options().String("style", "")}}
}

// AssetPath maps a content-relative asset path to its output location.
func AssetPath(p pathid.FilePath) pathid.FilePath {
	dir := p.Dir()
	if dir == "" {
		return pathid.FilePath(path.Base(string(p)))
	}
	segs := strings.Split(dir, "/")
	for i, s := range segs {
		segs[i] = pathid.SlugifySegment(s)
	}
	return pathid.FilePath(path.Join(append(segs, path.Base(string(p)))...))
}

func (e *Assets) Emit(ctx context.Context, pctx *plugin.Context, _ []*plugin.Content, res plugin.Resources) ([]pathid.FullPath, error) {
	out := make([]pathid.FullPath, 0, len(pctx.Assets)+1)
	if css, ok := res.Get(StyleResource); ok {
		full, err := writeArtifact(pctx, StyleFile, css)
		if err != nil {
			return out, err
		}
		out = append(out, full)
	}
	for _, a := range pctx.Assets {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		full, err := copyAsset(a.Join(pctx.ContentDir), pctx.OutputPath(AssetPath(a)))
		if err != nil {
			return out, derrors.FileSystemError("copy asset", err).WithFile(string(a)).Build()
		}
		out = append(out, full)
	}
	return out, nil
}

func copyAsset(src, dst pathid.FullPath) (pathid.FullPath, error) {
	in, err := os.Open(string(src)) // #nosec G304 -- discovered below the content root
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(string(dst)), 0o755); err != nil { // #nosec G301 -- published site folders
		return "", err
	}
	f, err := os.Create(string(dst)) // #nosec G304 -- below the output root
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, in); err != nil {
		_ = f.Close()
		return "", err
	}
	return dst, f.Close()
}
