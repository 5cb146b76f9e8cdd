package transformers

import (
	"context"
	"strings"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/frontmatter"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// FrontMatter splits the YAML block off the document, exposes its fields and
// derives title, slug, tags and aliases from them.
type FrontMatter struct {
	plugin.Base
}

// NewFrontMatter is the catalog constructor. It takes no options.
func NewFrontMatter(opts plugin.Options) (plugin.Plugin, error) {
	return &FrontMatter{Base: plugin.NewBase("frontmatter", "1", plugin.KindTransformer, opts)}, nil
}

func (t *FrontMatter) Transform(_ context.Context, _ *plugin.Context, c *plugin.Content) error {
	doc, err := frontmatter.Split([]byte(c.Raw))
	if err != nil {
		return derrors.ParseError("frontmatter", err).WithFile(string(c.Path)).Build()
	}
	fields, err := doc.Fields()
	if err != nil {
		return derrors.ParseError("frontmatter yaml", err).WithFile(string(c.Path)).Build()
	}

	c.Raw = string(doc.Body)
	c.FrontMatter = fields

	if title := strings.TrimSpace(c.String("title")); title != "" {
		c.Title = title
	}
	if s := strings.TrimSpace(firstString(fields, "slug", "permalink")); s != "" {
		c.Slug = pathid.NewSlug(s)
	}

	c.Tags = nil
	seen := map[string]bool{}
	for _, raw := range append(stringList(fields["tags"]), stringList(fields["tag"])...) {
		tag := pathid.SlugifyTag(raw)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			c.Tags = append(c.Tags, tag)
		}
	}

	c.Aliases = nil
	for _, a := range append(stringList(fields["aliases"]), stringList(fields["alias"])...) {
		if a = strings.TrimSpace(a); a != "" {
			c.Aliases = append(c.Aliases, string(pathid.NewSlug(a)))
		}
	}
	return nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringList accepts a YAML list or a comma separated string.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
