// Package emitters implements the built-in emitter plugins. Every page
// emitter renders through the same html/template layout, loaded as the
// "layout" resource.
package emitters

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// LayoutResource is the resource name of the page layout.
const LayoutResource = "layout"

// Page kinds exposed to the layout as .Kind.
const (
	KindContent  = "content"
	KindTag      = "tag"
	KindTagIndex = "tag-index"
	KindFolder   = "folder"
	KindNotFound = "404"
)

// PageView is the data handed to the layout.
type PageView struct {
	Site        config.SiteConfig
	Kind        string
	Slug        pathid.Slug
	Title       string
	Description string
	// Root is the relative prefix from this page to the site root, ending in "/".
	Root        string
	Body        template.HTML
	Modified    time.Time
	TOC         []plugin.Heading
	Tags        []LinkView
	Backlinks   []LinkView
	Listing     []LinkView
	Breadcrumbs []LinkView
}

// LinkView is a titled link, optionally with a short description.
type LinkView struct {
	Title       string
	Href        string
	Description string
}

func layoutRequest(opts plugin.Options) []plugin.ResourceRequest {
	return []plugin.ResourceRequest{{Name: LayoutResource, Path: opts.String("layout", "")}}
}

func parseLayout(res plugin.Resources) (*template.Template, error) {
	src, ok := res.Get(LayoutResource)
	if !ok {
		return nil, derrors.ResourceLoadError(LayoutResource, fmt.Errorf("resource not loaded")).Build()
	}
	tmpl, err := template.New(LayoutResource).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return tmpl, nil
}

func render(tmpl *template.Template, view PageView) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", view.Slug, err)
	}
	return buf.Bytes(), nil
}

// pageFile is the output file of a page slug.
func pageFile(s pathid.Slug) pathid.FilePath {
	return s.OutputFile(".html")
}

// href links from the page at from to the page at to.
func href(from, to pathid.Slug) string {
	return pathid.RelativeTo(from, to) + ".html"
}

// rootOf is the relative prefix from the page at s to the site root.
func rootOf(s pathid.Slug) string {
	dir := s.Folder()
	if dir == "" {
		return "./"
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

func breadcrumbs(s pathid.Slug) []LinkView {
	dir := s.Folder()
	if dir == "" {
		return nil
	}
	segs := strings.Split(dir, "/")
	out := make([]LinkView, 0, len(segs))
	for i := range segs {
		folder := pathid.Slug(strings.Join(segs[:i+1], "/") + "/index")
		if folder == s {
			continue
		}
		out = append(out, LinkView{Title: humanize(segs[i]), Href: href(s, folder)})
	}
	return out
}

// humanize turns a slug segment into a display title.
func humanize(seg string) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(seg))
}

// writeArtifact writes data to rel below the output directory.
func writeArtifact(pctx *plugin.Context, rel pathid.FilePath, data []byte) (pathid.FullPath, error) {
	full := pctx.OutputPath(rel)
	if err := os.MkdirAll(filepath.Dir(string(full)), 0o755); err != nil { // #nosec G301 -- published site folders
		return "", derrors.FileSystemError("create output folder", err).WithFile(string(rel)).Build()
	}
	if err := os.WriteFile(string(full), data, 0o644); err != nil { // #nosec G306 -- published site files
		return "", derrors.FileSystemError("write artifact", err).WithFile(string(rel)).Build()
	}
	return full, nil
}
