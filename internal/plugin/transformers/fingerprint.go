package transformers

import (
	"context"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/docpipe/internal/frontmatter"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// Fingerprint stores the mdfp content fingerprint in a frontmatter field so
// emitters and downstream tools can detect content changes.
type Fingerprint struct {
	plugin.Base
	field string
}

// NewFingerprint is the catalog constructor. Options: field.
func NewFingerprint(opts plugin.Options) (plugin.Plugin, error) {
	return &Fingerprint{
		Base:  plugin.NewBase("fingerprint", "1", plugin.KindTransformer, opts),
		field: opts.String("field", mdfp.FingerprintField),
	}, nil
}

func (t *Fingerprint) Transform(_ context.Context, _ *plugin.Context, c *plugin.Content) error {
	fp, err := frontmatter.Fingerprint(c.FrontMatter, []byte(c.Raw))
	if err != nil {
		return err
	}
	if c.FrontMatter == nil {
		c.FrontMatter = map[string]any{}
	}
	c.FrontMatter[t.field] = fp
	return nil
}
