package transformers

import (
	"context"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/docpipe/internal/markdown"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// Description derives the plain text of the document and a short summary.
// An explicit frontmatter description wins over the derived one.
type Description struct {
	plugin.Base
	length int
}

// NewDescription is the catalog constructor. Options: length (runes).
func NewDescription(opts plugin.Options) (plugin.Plugin, error) {
	n := opts.Int("length", 150)
	if n <= 0 {
		n = 150
	}
	return &Description{Base: plugin.NewBase("description", "1", plugin.KindTransformer, opts), length: n}, nil
}

func (t *Description) Transform(_ context.Context, _ *plugin.Context, c *plugin.Content) error {
	c.Text = markdown.PlainText(c.HTML)
	if d := strings.TrimSpace(c.String("description")); d != "" {
		c.Description = d
		return nil
	}
	c.Description = truncateWords(c.Text, t.length)
	return nil
}

// truncateWords cuts s to at most n runes at a word boundary and marks the cut.
func truncateWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
