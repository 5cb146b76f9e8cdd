package emitters

import (
	"context"
	"fmt"
	"path"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// TagFolder is the slug folder holding tag pages.
const TagFolder = "tags"

func tagSlug(tag string) pathid.Slug {
	return pathid.Slug(TagFolder + "/" + tag)
}

// TagPage writes a listing page per tag and an index of all tags. Nested
// tags list the documents of their children too.
type TagPage struct {
	plugin.Base
}

// NewTagPage is the catalog constructor. Options: layout.
func NewTagPage(opts plugin.Options) (plugin.Plugin, error) {
	return &TagPage{Base: plugin.NewBase("tag-page", "1", plugin.KindEmitter, opts)}, nil
}

func (e *TagPage) Resources() []plugin.ResourceRequest { return layoutRequest(e.Options()) }

func (e *TagPage) Emit(ctx context.Context, pctx *plugin.Context, contents []*plugin.Content, res plugin.Resources) ([]pathid.FullPath, error) {
	if pctx.Graph == nil {
		return nil, nil
	}
	tags := pctx.Graph.Tags()
	if len(tags) == 0 {
		return nil, nil
	}
	tmpl, err := parseLayout(res)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[pathid.Slug]*plugin.Content, len(contents))
	for _, c := range contents {
		bySlug[c.Slug] = c
	}

	out := make([]pathid.FullPath, 0, len(tags)+1)
	indexSlug := pathid.Slug(TagFolder + "/index")
	index := PageView{Site: pctx.Site, Kind: KindTagIndex, Slug: indexSlug, Title: "Tags", Root: rootOf(indexSlug)}

	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		slug := tagSlug(tag)
		tagged := pctx.Graph.Tagged(tag)
		view := PageView{
			Site:        pctx.Site,
			Kind:        KindTag,
			Slug:        slug,
			Title:       humanize(path.Base(tag)),
			Description: fmt.Sprintf("%d documents tagged %s", len(tagged), tag),
			Root:        rootOf(slug),
			Breadcrumbs: []LinkView{{Title: "Tags", Href: href(slug, indexSlug)}},
		}
		for _, s := range tagged {
			c, ok := bySlug[s]
			if !ok {
				continue
			}
			view.Listing = append(view.Listing, LinkView{Title: c.Title, Href: href(slug, s), Description: c.Description})
		}
		page, err := render(tmpl, view)
		if err != nil {
			return out, err
		}
		full, err := writeArtifact(pctx, pageFile(slug), page)
		if err != nil {
			return out, err
		}
		out = append(out, full)
		index.Listing = append(index.Listing, LinkView{Title: tag, Href: href(indexSlug, slug), Description: fmt.Sprintf("%d", len(tagged))})
	}

	page, err := render(tmpl, index)
	if err != nil {
		return out, err
	}
	full, err := writeArtifact(pctx, pageFile(indexSlug), page)
	if err != nil {
		return out, err
	}
	return append(out, full), nil
}
