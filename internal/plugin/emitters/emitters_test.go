package emitters

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/graph"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
	"git.home.luguber.info/inful/docpipe/internal/resources"
)

func builtinResources(t *testing.T) plugin.Resources {
	t.Helper()
	res := plugin.Resources{}
	for _, name := range []string{LayoutResource, StyleResource} {
		data, ok := resources.Builtin(name)
		require.True(t, ok, name)
		res[name] = data
	}
	return res
}

func doc(path, title, html string, links, tags []string) *plugin.Content {
	c := plugin.NewContent(pathid.FilePath(path), "h", nil)
	c.Title = title
	c.HTML = html
	c.Text = title + " text"
	c.Links = links
	c.Tags = tags
	return c
}

func siteContext(t *testing.T, contents []*plugin.Content) *plugin.Context {
	t.Helper()
	docs := make([]graph.Document, 0, len(contents))
	for _, c := range contents {
		docs = append(docs, graph.Document{
			Path: c.Path, Slug: c.Slug, Title: c.Title, Links: c.Links,
			Tags: c.Tags, Aliases: c.Aliases, Text: c.Text,
		})
	}
	return &plugin.Context{
		BuildID:    "test",
		ContentDir: pathid.FullPath(t.TempDir()),
		OutputDir:  pathid.FullPath(t.TempDir()),
		Site:       config.SiteConfig{Title: "Docs"},
		Graph:      graph.Build(docs),
	}
}

func emit(t *testing.T, ctor plugin.Constructor, opts plugin.Options, pctx *plugin.Context, contents []*plugin.Content) []pathid.FullPath {
	t.Helper()
	p, err := ctor(opts)
	require.NoError(t, err)
	e, ok := p.(plugin.Emitter)
	require.True(t, ok)
	out, err := e.Emit(context.Background(), pctx, contents, builtinResources(t))
	require.NoError(t, err)
	return out
}

func readOut(t *testing.T, pctx *plugin.Context, rel string) string {
	t.Helper()
	data, err := os.ReadFile(string(pctx.OutputPath(pathid.FilePath(rel))))
	require.NoError(t, err)
	return string(data)
}

func TestContentPage_ResolvesLinksAndBacklinks(t *testing.T) {
	a := doc("guides/a.md", "Alpha",
		`<p>See <a href="b.md" data-ref="b" class="internal">b</a> and <a href="gone.md#x" data-ref="gone#x" class="internal">gone</a>.</p>`,
		[]string{"b", "gone#x"}, []string{"go"})
	b := doc("guides/b.md", "Beta", "<p>Beta body</p>", nil, nil)
	b.Dates.Modified = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	contents := []*plugin.Content{a, b}
	pctx := siteContext(t, contents)

	out := emit(t, NewContentPage, nil, pctx, contents)
	require.Len(t, out, 2)

	pageA := readOut(t, pctx, "guides/a.html")
	assert.Contains(t, pageA, `href="../guides/b.html"`)
	assert.Contains(t, pageA, "broken")
	assert.NotContains(t, pageA, "data-ref")
	assert.Contains(t, pageA, `href="../tags/go.html"`)
	assert.Contains(t, pageA, `href="../static/docpipe.css"`)

	pageB := readOut(t, pctx, "guides/b.html")
	assert.Contains(t, pageB, "Backlinks")
	assert.Contains(t, pageB, `href="../guides/a.html"`)
	assert.Contains(t, pageB, `datetime="2024-03-01"`)
}

func TestContentPage_MissingLayout(t *testing.T) {
	c := doc("a.md", "A", "<p>a</p>", nil, nil)
	pctx := siteContext(t, []*plugin.Content{c})
	p, err := NewContentPage(nil)
	require.NoError(t, err)
	_, err = p.(plugin.Emitter).Emit(context.Background(), pctx, []*plugin.Content{c}, plugin.Resources{})
	require.Error(t, err)
}

func TestTagPage(t *testing.T) {
	contents := []*plugin.Content{
		doc("a.md", "A", "", nil, []string{"go/concurrency"}),
		doc("b.md", "B", "", nil, []string{"go"}),
	}
	pctx := siteContext(t, contents)

	out := emit(t, NewTagPage, nil, pctx, contents)
	require.Len(t, out, 3)

	goPage := readOut(t, pctx, "tags/go.html")
	assert.Contains(t, goPage, `href="../a.html"`)
	assert.Contains(t, goPage, `href="../b.html"`)

	nested := readOut(t, pctx, "tags/go/concurrency.html")
	assert.Contains(t, nested, `href="../../a.html"`)
	assert.NotContains(t, nested, `href="../../b.html"`)

	index := readOut(t, pctx, "tags/index.html")
	assert.Contains(t, index, `href="../tags/go.html"`)
	assert.Contains(t, index, `href="../tags/go/concurrency.html"`)
}

func TestTagPage_NoTags(t *testing.T) {
	contents := []*plugin.Content{doc("a.md", "A", "", nil, nil)}
	pctx := siteContext(t, contents)
	assert.Empty(t, emit(t, NewTagPage, nil, pctx, contents))
}

func TestFolderPage(t *testing.T) {
	contents := []*plugin.Content{
		doc("index.md", "Home", "", nil, nil),
		doc("guides/setup.md", "Setup", "", nil, nil),
		doc("guides/deep/more.md", "More", "", nil, nil),
		doc("ref/index.md", "Reference", "", nil, nil),
	}
	pctx := siteContext(t, contents)

	out := emit(t, NewFolderPage, nil, pctx, contents)
	require.Len(t, out, 2)

	guides := readOut(t, pctx, "guides/index.html")
	assert.Contains(t, guides, `href="../guides/setup.html"`)
	assert.Contains(t, guides, `href="../guides/deep/index.html"`)
	assert.FileExists(t, string(pctx.OutputPath("guides/deep/index.html")))
	assert.NoFileExists(t, string(pctx.OutputPath("ref/index.html")))
}

func TestContentIndex(t *testing.T) {
	a := doc("a.md", "A", "", []string{"b"}, []string{"x"})
	a.Description = "about a"
	b := doc("b.md", "B", "", nil, nil)
	b.Dates.Modified = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	contents := []*plugin.Content{b, a}
	pctx := siteContext(t, contents)
	pctx.Site.BaseURL = "https://docs.example.org"

	out := emit(t, NewContentIndex, nil, pctx, contents)
	require.Len(t, out, 2)

	var index map[string]IndexEntry
	require.NoError(t, json.Unmarshal([]byte(readOut(t, pctx, ContentIndexFile)), &index))
	require.Len(t, index, 2)
	assert.Equal(t, []string{"b"}, index["a"].Links)
	assert.Equal(t, []string{"x"}, index["a"].Tags)
	assert.Equal(t, "about a", index["a"].Description)
	assert.Empty(t, index["b"].Links)
	assert.Equal(t, "2024-01-02", index["b"].Date)

	sm := readOut(t, pctx, SitemapFile)
	assert.Contains(t, sm, "<loc>https://docs.example.org/a.html</loc>")
	assert.Contains(t, sm, "<lastmod>2024-01-02</lastmod>")
}

func TestContentIndex_NoSitemapWithoutBaseURL(t *testing.T) {
	contents := []*plugin.Content{doc("a.md", "A", "", nil, nil)}
	pctx := siteContext(t, contents)
	out := emit(t, NewContentIndex, nil, pctx, contents)
	require.Len(t, out, 1)
	assert.NoFileExists(t, string(pctx.OutputPath(SitemapFile)))
}

func TestAliases(t *testing.T) {
	a := doc("new/place.md", "Place", "", nil, nil)
	a.Aliases = []string{"old/place", "other"}
	other := doc("other.md", "Other", "", nil, nil)
	contents := []*plugin.Content{a, other}
	pctx := siteContext(t, contents)

	out := emit(t, NewAliases, nil, pctx, contents)
	require.Len(t, out, 1)
	page := readOut(t, pctx, "old/place.html")
	assert.Contains(t, page, `url=../new/place.html`)
	assert.NoFileExists(t, string(pctx.OutputPath("other.html")))
}

func TestAssets(t *testing.T) {
	pctx := siteContext(t, nil)
	src := filepath.Join(string(pctx.ContentDir), "My Images", "Logo.PNG")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))
	pctx.Assets = []pathid.FilePath{"My Images/Logo.PNG"}

	out := emit(t, NewAssets, nil, pctx, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "png", readOut(t, pctx, "my-images/Logo.PNG"))
	assert.NotEmpty(t, readOut(t, pctx, StyleFile))
}

func TestAssetPath(t *testing.T) {
	assert.Equal(t, pathid.FilePath("a.png"), AssetPath("a.png"))
	assert.Equal(t, pathid.FilePath("sub-dir/x/File Name.pdf"), AssetPath("Sub Dir/X/File Name.pdf"))
}

func TestNotFound(t *testing.T) {
	pctx := siteContext(t, nil)
	out := emit(t, NewNotFound, plugin.Options{"message": "Nope"}, pctx, nil)
	require.Len(t, out, 1)
	page := readOut(t, pctx, "404.html")
	assert.Contains(t, page, "<p>Nope</p>")
	assert.Contains(t, page, `href="/static/docpipe.css"`)
}
