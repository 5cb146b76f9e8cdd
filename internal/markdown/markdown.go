// Package markdown wraps goldmark for the built-in markdown plugins and
// provides small HTML helpers built on golang.org/x/net/html.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Options selects goldmark extensions and renderer behaviour.
type Options struct {
	GFM        bool
	HardWraps  bool
	Unsafe     bool
	HeadingIDs bool
}

// Engine parses and renders markdown with a fixed option set. It is safe for
// concurrent use.
type Engine struct {
	md   goldmark.Markdown
	opts Options
}

// New builds an engine for opts.
func New(opts Options) *Engine {
	var exts []goldmark.Extender
	if opts.GFM {
		exts = append(exts, extension.GFM)
	}
	var popts []parser.Option
	if opts.HeadingIDs {
		popts = append(popts, parser.WithAutoHeadingID())
	}
	var hopts []renderer.Option
	if opts.HardWraps {
		hopts = append(hopts, html.WithHardWraps())
	}
	if opts.Unsafe {
		hopts = append(hopts, html.WithUnsafe())
	}
	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(popts...),
		goldmark.WithRendererOptions(hopts...),
	)
	return &Engine{md: md, opts: opts}
}

// Options returns the options the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// Parse parses a body (frontmatter already removed) into an AST.
func (e *Engine) Parse(body []byte) gmast.Node {
	return e.md.Parser().Parse(text.NewReader(body))
}

// Render renders a tree parsed from body.
func (e *Engine) Render(body []byte, tree gmast.Node) (string, error) {
	var buf bytes.Buffer
	buf.Grow(len(body) * 2)
	if err := e.md.Renderer().Render(&buf, body, tree); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Heading is one heading of a parsed document.
type Heading struct {
	Level int
	Text  string
	ID    string
}

// Headings lists the headings of tree in document order. ID is empty unless
// the engine generates heading ids.
func Headings(tree gmast.Node, body []byte) []Heading {
	var out []Heading
	_ = gmast.Walk(tree, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		entry := Heading{Level: h.Level, Text: nodeText(h, body)}
		if id, ok := h.AttributeString("id"); ok {
			switch v := id.(type) {
			case []byte:
				entry.ID = string(v)
			case string:
				entry.ID = v
			}
		}
		out = append(out, entry)
		return gmast.WalkSkipChildren, nil
	})
	return out
}

// FirstHeading returns the text of the first level-1 heading, if any.
func FirstHeading(tree gmast.Node, body []byte) string {
	for _, h := range Headings(tree, body) {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

func nodeText(n gmast.Node, body []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(body))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return string(bytes.TrimSpace(buf.Bytes()))
}
