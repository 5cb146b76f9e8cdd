package transformers

import (
	"context"
	"path"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docpipe/internal/markdown"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// Link resolution modes.
const (
	// LinksShortest keeps references as written; bare names resolve anywhere.
	LinksShortest = "shortest"
	// LinksRelative treats every reference as relative to the document.
	LinksRelative = "relative"
	// LinksAbsolute treats every reference as relative to the content root.
	LinksAbsolute = "absolute"
)

// RefAttr is the attribute carrying the canonical reference of an internal
// link until an emitter resolves it against the link graph.
const RefAttr = "data-ref"

// documentExts are link targets that point at documents rather than assets.
var documentExts = map[string]bool{"": true, ".md": true, ".markdown": true, ".html": true, ".htm": true}

// Links classifies the anchors of the rendered HTML. Internal links are
// tagged with their canonical reference and collected into Content.Links;
// resolution happens once the link graph exists.
type Links struct {
	plugin.Base
	mode          string
	externalBlank bool
}

// NewLinks is the catalog constructor. Options: mode, external_blank.
func NewLinks(opts plugin.Options) (plugin.Plugin, error) {
	mode, err := opts.OneOf("mode", LinksShortest, LinksShortest, LinksRelative, LinksAbsolute)
	if err != nil {
		return nil, err
	}
	return &Links{
		Base:          plugin.NewBase("links", "1", plugin.KindTransformer, opts),
		mode:          mode,
		externalBlank: opts.Bool("external_blank", false),
	}, nil
}

func (t *Links) Transform(_ context.Context, _ *plugin.Context, c *plugin.Content) error {
	var refs []string
	seen := map[string]bool{}
	out, err := markdown.RewriteAnchors(c.HTML, func(tag *html.Token) bool {
		href, ok := markdown.Attr(tag, "href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return false
		}
		if isExternal(href) {
			markdown.AddClass(tag, "external")
			if t.externalBlank {
				markdown.SetAttr(tag, "target", "_blank")
				markdown.SetAttr(tag, "rel", "noopener noreferrer")
			}
			return true
		}
		if !documentExts[strings.ToLower(path.Ext(stripFragment(href)))] {
			markdown.AddClass(tag, "asset")
			return true
		}
		ref := t.canonical(href)
		markdown.SetAttr(tag, RefAttr, ref)
		markdown.AddClass(tag, "internal")
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
		return true
	})
	if err != nil {
		return err
	}
	c.HTML = out
	c.Links = refs
	return nil
}

func (t *Links) canonical(href string) string {
	switch t.mode {
	case LinksRelative:
		if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../") {
			return href
		}
		return "./" + href
	case LinksAbsolute:
		if strings.HasPrefix(href, "/") {
			return href
		}
		return "/" + strings.TrimPrefix(href, "./")
	default:
		return href
	}
}

func isExternal(href string) bool {
	lower := strings.ToLower(href)
	return strings.Contains(lower, "://") ||
		strings.HasPrefix(lower, "//") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:")
}

func stripFragment(href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		return href[:i]
	}
	return href
}
