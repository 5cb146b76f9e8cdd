package emitters

import (
	"context"
	"html/template"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docpipe/internal/markdown"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
	"git.home.luguber.info/inful/docpipe/internal/plugin/transformers"
)

// ContentPage writes one HTML page per published document. Internal links
// are resolved against the link graph here; unresolved ones keep their
// original href and get the "broken" class.
type ContentPage struct {
	plugin.Base
	backlinks bool
	tags      bool
}

// NewContentPage is the catalog constructor. Options: layout, backlinks, tags.
func NewContentPage(opts plugin.Options) (plugin.Plugin, error) {
	return &ContentPage{
		Base:      plugin.NewBase("content-page", "1", plugin.KindEmitter, opts),
		backlinks: opts.Bool("backlinks", true),
		tags:      opts.Bool("tags", true),
	}, nil
}

func (e *ContentPage) Resources() []plugin.ResourceRequest { return layoutRequest(e.Options()) }

func (e *ContentPage) Emit(ctx context.Context, pctx *plugin.Context, contents []*plugin.Content, res plugin.Resources) ([]pathid.FullPath, error) {
	tmpl, err := parseLayout(res)
	if err != nil {
		return nil, err
	}
	out := make([]pathid.FullPath, 0, len(contents))
	for _, c := range contents {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		body, err := e.resolveLinks(pctx, c)
		if err != nil {
			return out, err
		}
		view := PageView{
			Site:        pctx.Site,
			Kind:        KindContent,
			Slug:        c.Slug,
			Title:       c.Title,
			Description: c.Description,
			Root:        rootOf(c.Slug),
			Body:        template.HTML(body), // #nosec G203 -- rendered by the markdown transformer
			Modified:    c.Dates.Modified,
			TOC:         c.Headings,
			Breadcrumbs: breadcrumbs(c.Slug),
		}
		if e.tags {
			for _, t := range c.Tags {
				view.Tags = append(view.Tags, LinkView{Title: t, Href: href(c.Slug, tagSlug(t))})
			}
		}
		if e.backlinks && pctx.Graph != nil {
			for _, b := range pctx.Graph.BacklinksOf(c.Slug) {
				view.Backlinks = append(view.Backlinks, LinkView{Title: b.Title, Href: href(c.Slug, b.Source), Description: b.Excerpt})
			}
		}
		page, err := render(tmpl, view)
		if err != nil {
			return out, err
		}
		full, err := writeArtifact(pctx, pageFile(c.Slug), page)
		if err != nil {
			return out, err
		}
		out = append(out, full)
	}
	return out, nil
}

func (e *ContentPage) resolveLinks(pctx *plugin.Context, c *plugin.Content) (string, error) {
	if len(c.Links) == 0 {
		return c.HTML, nil
	}
	return markdown.RewriteAnchors(c.HTML, func(tag *html.Token) bool {
		ref, ok := markdown.Attr(tag, transformers.RefAttr)
		if !ok {
			return false
		}
		markdown.DelAttr(tag, transformers.RefAttr)
		var target pathid.Slug
		if pctx.Graph != nil {
			target, ok = pctx.Graph.Resolve(c.Slug, ref)
		}
		if !ok {
			markdown.AddClass(tag, "broken")
			return true
		}
		link := href(c.Slug, target)
		if i := strings.IndexByte(ref, '#'); i >= 0 {
			link += ref[i:]
		}
		markdown.SetAttr(tag, "href", link)
		return true
	})
}
