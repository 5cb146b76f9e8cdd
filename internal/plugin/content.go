package plugin

import (
	"slices"
	"time"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// Content is the processed form of one source document. It is produced by
// the transformer stage and is read-only afterwards; use Clone for a private
// copy. Everything except Tree survives the build cache.
type Content struct {
	Path pathid.FilePath `json:"path"`
	Slug pathid.Slug     `json:"slug"`
	Hash string          `json:"hash"`

	// Raw is the document body with frontmatter removed.
	Raw         string         `json:"raw"`
	FrontMatter map[string]any `json:"frontmatter,omitempty"`

	Title       string    `json:"title"`
	HTML        string    `json:"html,omitempty"`
	Text        string    `json:"text,omitempty"`
	Description string    `json:"description,omitempty"`
	Links       []string  `json:"links,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Aliases     []string  `json:"aliases,omitempty"`
	Headings    []Heading `json:"headings,omitempty"`
	Dates       Dates     `json:"dates"`

	// Tree is the parsed document, valid only in the run that parsed it.
	Tree ast.Node `json:"-"`
}

// Heading is one entry of the document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Dates are the document timestamps resolved by the lastmod transformer.
type Dates struct {
	Created   time.Time `json:"created,omitzero"`
	Modified  time.Time `json:"modified,omitzero"`
	Published time.Time `json:"published,omitzero"`
}

// NewContent returns content for a freshly read source file.
func NewContent(path pathid.FilePath, hash string, raw []byte) *Content {
	return &Content{
		Path:  path,
		Slug:  pathid.SlugOf(path),
		Hash:  hash,
		Raw:   string(raw),
		Title: path.Base(),
	}
}

// Clone returns a deep copy. Tree is shared, not copied.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := *c
	out.FrontMatter = cloneMap(c.FrontMatter)
	out.Links = slices.Clone(c.Links)
	out.Tags = slices.Clone(c.Tags)
	out.Aliases = slices.Clone(c.Aliases)
	out.Headings = slices.Clone(c.Headings)
	return &out
}

// Bool reads a boolean frontmatter field.
func (c *Content) Bool(key string) bool {
	switch v := c.FrontMatter[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes"
	}
	return false
}

// String reads a string frontmatter field.
func (c *Content) String(key string) string {
	if s, ok := c.FrontMatter[key].(string); ok {
		return s
	}
	return ""
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneMap(t)
		case []any:
			out[k] = slices.Clone(t)
		case []string:
			out[k] = slices.Clone(t)
		default:
			out[k] = v
		}
	}
	return out
}
