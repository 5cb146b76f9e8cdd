package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestRenderAndHeadings(t *testing.T) {
	e := New(Options{GFM: true, HeadingIDs: true})
	body := []byte("# Hello *World*\n\nSome text.\n\n## Next Step\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	tree := e.Parse(body)

	out, err := e.Render(body, tree)
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="hello-world">Hello <em>World</em></h1>`)
	assert.Contains(t, out, "<table>")

	hs := Headings(tree, body)
	require.Len(t, hs, 2)
	assert.Equal(t, Heading{Level: 1, Text: "Hello World", ID: "hello-world"}, hs[0])
	assert.Equal(t, 2, hs[1].Level)
	assert.Equal(t, "next-step", hs[1].ID)
	assert.Equal(t, "Hello World", FirstHeading(tree, body))
}

func TestRenderWithoutGFM(t *testing.T) {
	e := New(Options{})
	body := []byte("~~gone~~\n")
	out, err := e.Render(body, e.Parse(body))
	require.NoError(t, err)
	assert.NotContains(t, out, "<del>")

	hs := Headings(e.Parse([]byte("# Title\n")), []byte("# Title\n"))
	require.Len(t, hs, 1)
	assert.Empty(t, hs[0].ID)
}

func TestRendererOptions(t *testing.T) {
	body := []byte("line one\nline two\n\n<div class=\"raw\">x</div>\n")

	plain := New(Options{})
	out, err := plain.Render(body, plain.Parse(body))
	require.NoError(t, err)
	assert.NotContains(t, out, "<br")
	assert.Contains(t, out, "raw HTML omitted")

	e := New(Options{HardWraps: true, Unsafe: true})
	out, err = e.Render(body, e.Parse(body))
	require.NoError(t, err)
	assert.Contains(t, out, "line one<br")
	assert.Contains(t, out, `<div class="raw">x</div>`)
}

func TestExtractLinks(t *testing.T) {
	e := New(Options{GFM: true})
	body := []byte("See [API](api.md), ![D](d.png), <https://example.com> and [ref][r].\n\n[r]: guide/setup.md\n")
	links := ExtractLinks(e.Parse(body), body)
	require.Len(t, links, 4)
	assert.Equal(t, Link{Kind: LinkKindInline, Destination: "api.md"}, links[0])
	assert.Equal(t, Link{Kind: LinkKindImage, Destination: "d.png"}, links[1])
	assert.Equal(t, Link{Kind: LinkKindAuto, Destination: "https://example.com"}, links[2])
	assert.Equal(t, "guide/setup.md", links[3].Destination)
}

func TestPlainText(t *testing.T) {
	got := PlainText("<h1>Title</h1><p>Hello <em>big</em>   world &amp; more.</p><script>x()</script><ul><li>a</li><li>b</li></ul>")
	assert.Equal(t, "Title Hello big world & more. a b", got)
	assert.Equal(t, "", PlainText(""))
}

func TestRewriteAnchors(t *testing.T) {
	in := `<p>See <a href="a.md">A</a> and <a href="https://x.org">X</a>.</p>`
	out, err := RewriteAnchors(in, func(tag *html.Token) bool {
		href, _ := Attr(tag, "href")
		if strings.HasPrefix(href, "https://") {
			return false
		}
		SetAttr(tag, "href", "./a")
		AddClass(tag, "internal")
		AddClass(tag, "internal")
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, `<p>See <a href="./a" class="internal">A</a> and <a href="https://x.org">X</a>.</p>`, out)

	unchanged, err := RewriteAnchors(in, func(*html.Token) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, in, unchanged)
}

func TestAttrHelpers(t *testing.T) {
	tag := &html.Token{Data: "a", Attr: []html.Attribute{{Key: "href", Val: "x"}, {Key: "data-ref", Val: "y"}}}
	DelAttr(tag, "data-ref")
	_, ok := Attr(tag, "data-ref")
	assert.False(t, ok)
	v, ok := Attr(tag, "href")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}
