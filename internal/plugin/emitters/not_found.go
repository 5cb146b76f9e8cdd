package emitters

import (
	"context"
	"html"
	"html/template"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// NotFound writes 404.html at the output root.
type NotFound struct {
	plugin.Base
}

// NewNotFound is the catalog constructor. Options: layout, message.
func NewNotFound(opts plugin.Options) (plugin.Plugin, error) {
	return &NotFound{Base: plugin.NewBase("not-found", "1", plugin.KindEmitter, opts)}, nil
}

func (e *NotFound) Resources() []plugin.ResourceRequest { return layoutRequest(e.Options()) }

func (e *NotFound) Emit(_ context.Context, pctx *plugin.Context, _ []*plugin.Content, res plugin.Resources) ([]pathid.FullPath, error) {
	tmpl, err := parseLayout(res)
	if err != nil {
		return nil, err
	}
	const slug = pathid.Slug("404")
	// Served for arbitrary paths, so links must be absolute.
	root := "/"
	if pctx.Site.BaseURL != "" {
		root = pctx.Site.BaseURL + "/"
	}
	msg := e.Options().String("message", "The page you are looking for does not exist.")
	view := PageView{
		Site:  pctx.Site,
		Kind:  KindNotFound,
		Slug:  slug,
		Title: "Not found",
		Root:  root,
		Body:  template.HTML("<p>" + html.EscapeString(msg) + "</p>"), // #nosec G203 -- escaped above
	}
	page, err := render(tmpl, view)
	if err != nil {
		return nil, err
	}
	full, err := writeArtifact(pctx, pageFile(slug), page)
	if err != nil {
		return nil, err
	}
	return []pathid.FullPath{full}, nil
}
