package transformers

import (
	"context"

	"git.home.luguber.info/inful/docpipe/internal/markdown"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// Markdown renders the body with goldmark and records the heading outline.
type Markdown struct {
	plugin.Base
	engine *markdown.Engine
}

// NewMarkdown is the catalog constructor. Options: gfm, hard_wraps,
// unsafe_html, heading_ids.
func NewMarkdown(opts plugin.Options) (plugin.Plugin, error) {
	e := markdown.New(markdown.Options{
		GFM:        opts.Bool("gfm", true),
		HardWraps:  opts.Bool("hard_wraps", false),
		Unsafe:     opts.Bool("unsafe_html", false),
		HeadingIDs: opts.Bool("heading_ids", true),
	})
	return &Markdown{Base: plugin.NewBase("markdown", "1", plugin.KindTransformer, opts), engine: e}, nil
}

func (t *Markdown) Transform(_ context.Context, _ *plugin.Context, c *plugin.Content) error {
	body := []byte(c.Raw)
	tree := t.engine.Parse(body)
	html, err := t.engine.Render(body, tree)
	if err != nil {
		return err
	}
	c.Tree = tree
	c.HTML = html

	hs := markdown.Headings(tree, body)
	c.Headings = make([]plugin.Heading, 0, len(hs))
	for _, h := range hs {
		c.Headings = append(c.Headings, plugin.Heading{Level: h.Level, Text: h.Text, ID: h.ID})
	}
	if c.String("title") == "" {
		if h1 := markdown.FirstHeading(tree, body); h1 != "" {
			c.Title = h1
		}
	}
	return nil
}
