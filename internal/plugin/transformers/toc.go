package transformers

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// TOC narrows Content.Headings to the levels shown in a table of contents.
// A document with `toc: false` gets none.
type TOC struct {
	plugin.Base
	min, max int
}

// NewTOC is the catalog constructor. Options: min_depth, max_depth.
func NewTOC(opts plugin.Options) (plugin.Plugin, error) {
	lo, hi := opts.Int("min_depth", 2), opts.Int("max_depth", 3)
	if lo < 1 || hi > 6 || lo > hi {
		return nil, fmt.Errorf("invalid depth range %d..%d", lo, hi)
	}
	return &TOC{Base: plugin.NewBase("toc", "1", plugin.KindTransformer, opts), min: lo, max: hi}, nil
}

func (t *TOC) Transform(_ context.Context, _ *plugin.Context, c *plugin.Content) error {
	if v, ok := c.FrontMatter["toc"].(bool); ok && !v {
		c.Headings = nil
		return nil
	}
	kept := c.Headings[:0]
	for _, h := range c.Headings {
		if h.Level >= t.min && h.Level <= t.max && h.ID != "" {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	c.Headings = kept
	return nil
}
