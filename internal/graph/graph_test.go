package graph

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

func fixtureDocs() []Document {
	return []Document{
		{Path: "notes/alpha.md", Slug: "notes/alpha", Title: "Alpha", Links: []string{"advanced"}, Tags: []string{"go", "Go/Concurrency"}},
		{Path: "index.md", Slug: "index", Title: "Home", Links: []string{"guides/setup.md", "https://example.com"}},
		{Path: "guides/setup.md", Slug: "guides/setup", Title: "Setup Guide", Links: []string{"../index.md", "./advanced", "missing"}},
		{Path: "guides/advanced.md", Slug: "guides/advanced", Title: "Advanced", Aliases: []string{"deep-dive"}, Tags: []string{"golang"},
			Links: []string{"setup", "guides/setup.md#install", "advanced"}},
	}
}

func TestBuild_ForwardLinks(t *testing.T) {
	g := Build(fixtureDocs())
	require.Equal(t, 4, g.Len())

	assert.Equal(t, []pathid.Slug{"guides/setup"}, g.ForwardLinks("index"))
	assert.Equal(t, []pathid.Slug{"index", "guides/advanced"}, g.ForwardLinks("guides/setup"))
	// duplicate reference collapses, self link ignored
	assert.Equal(t, []pathid.Slug{"guides/setup"}, g.ForwardLinks("guides/advanced"))
	assert.Equal(t, []pathid.Slug{"guides/advanced"}, g.ForwardLinks("notes/alpha"))
	assert.Nil(t, g.ForwardLinks("nope"))
}

func TestBuild_InputOrderIndependent(t *testing.T) {
	docs := fixtureDocs()
	reversed := make([]Document, len(docs))
	for i, d := range docs {
		reversed[len(docs)-1-i] = d
	}
	assert.Equal(t, Build(docs).Edges(), Build(reversed).Edges())
}

func TestBacklinksAreReversedForwardLinks(t *testing.T) {
	g := Build(fixtureDocs())

	for _, target := range g.Documents() {
		var want []pathid.Slug
		for _, src := range g.Documents() {
			for _, fl := range g.ForwardLinks(src.Slug) {
				if fl == target.Slug {
					want = append(want, src.Slug)
				}
			}
		}
		var got []pathid.Slug
		for _, bl := range g.BacklinksOf(target.Slug) {
			got = append(got, bl.Source)
		}
		assert.Equal(t, want, got, "backlinks of %s", target.Slug)
	}

	bl := g.BacklinksOf("guides/setup")
	require.Len(t, bl, 2)
	assert.Equal(t, pathid.Slug("guides/advanced"), bl[0].Source)
	assert.Equal(t, pathid.Slug("index"), bl[1].Source)
	assert.Equal(t, "Home", bl[1].Title)
}

func TestBacklinksOrderedBySourcePath(t *testing.T) {
	g := Build([]Document{
		{Path: "a.md", Slug: "a", Links: []string{"target"}},
		{Path: "B.md", Slug: "b", Links: []string{"target"}},
		{Path: "target.md", Slug: "target"},
	})
	bl := g.BacklinksOf("target")
	require.Len(t, bl, 2)
	assert.Equal(t, pathid.FilePath("B.md"), bl[0].Path)
	assert.Equal(t, pathid.Slug("b"), bl[0].Source)
	assert.Equal(t, pathid.FilePath("a.md"), bl[1].Path)
}

func TestBacklinksUpdateWhenDocumentAdded(t *testing.T) {
	docs := fixtureDocs()
	before := Build(docs).BacklinksOf("index")
	require.Len(t, before, 1)

	docs = append(docs, Document{Path: "about.md", Slug: "about", Links: []string{"/"}})
	after := Build(docs).BacklinksOf("index")
	require.Len(t, after, 2)
	assert.Equal(t, pathid.Slug("about"), after[0].Source)
	assert.Equal(t, pathid.Slug("guides/setup"), after[1].Source)
}

func TestRemovedDocumentLeavesNoEdges(t *testing.T) {
	docs := fixtureDocs()
	var kept []Document
	for _, d := range docs {
		if d.Slug != "guides/advanced" {
			kept = append(kept, d)
		}
	}
	g := Build(kept)
	require.Len(t, g.BacklinksOf("guides/setup"), 1)
	for _, bl := range g.BacklinksOf("guides/setup") {
		assert.NotEqual(t, pathid.Slug("guides/advanced"), bl.Source)
	}
	assert.False(t, g.Has("guides/advanced"))
}

func TestUnresolved(t *testing.T) {
	g := Build(fixtureDocs())
	un := g.Unresolved()
	require.Len(t, un, 1)
	assert.Equal(t, Unresolved{Source: "guides/setup", File: "guides/setup.md", Target: "missing"}, un[0])
}

func TestResolve(t *testing.T) {
	g := Build(append(fixtureDocs(), Document{Path: "guides/index.md", Slug: "guides/index", Title: "Guides"}))

	tests := []struct {
		from pathid.Slug
		ref  string
		want pathid.Slug
		ok   bool
	}{
		{"index", "guides/setup.md", "guides/setup", true},
		{"index", "guides/", "guides/index", true},
		{"index", "guides/README.md", "guides/index", true},
		{"guides/setup", ".", "guides/index", true},
		{"guides/setup", "../notes/alpha.md?x=1", "notes/alpha", true},
		{"guides/setup", "/notes/alpha", "notes/alpha", true},
		{"notes/alpha", "deep-dive", "guides/advanced", true},
		{"notes/alpha", "Setup", "guides/setup", true},
		{"notes/alpha", "Setup%20Guide.md", "", false},
		{"index", "https://example.com/a.md", "", false},
		{"index", "#top", "", false},
		{"guides/setup", "/advanced", "", false},
	}
	for _, tt := range tests {
		got, ok := g.Resolve(tt.from, tt.ref)
		assert.Equal(t, tt.ok, ok, "%s -> %s", tt.from, tt.ref)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.ref)
	}
}

func TestTags(t *testing.T) {
	g := Build(fixtureDocs())
	assert.Equal(t, []string{"go", "go/concurrency", "golang"}, g.Tags())
	assert.Equal(t, []pathid.Slug{"notes/alpha"}, g.Tagged("#Go"))
	assert.Equal(t, []pathid.Slug{"notes/alpha"}, g.Tagged("go/concurrency"))
	assert.Equal(t, []pathid.Slug{"guides/advanced"}, g.Tagged("golang"))
	assert.Empty(t, g.Tagged(""))
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 20) + "see the Setup Guide for details. " + strings.Repeat("tail words here ", 20)
	docs := []Document{
		{Slug: "a", Text: long, Links: []string{"guides/setup"}},
		{Slug: "b", Description: "Short description.", Text: "nothing relevant", Links: []string{"guides/setup"}},
		{Slug: "guides/setup", Title: "Setup Guide"},
	}
	g := Build(docs)
	bl := g.BacklinksOf("guides/setup")
	require.Len(t, bl, 2)

	assert.Contains(t, bl[0].Excerpt, "Setup Guide")
	assert.LessOrEqual(t, utf8.RuneCountInString(bl[0].Excerpt), MaxExcerpt)
	assert.True(t, strings.HasPrefix(bl[0].Excerpt, "…"))
	assert.Equal(t, "Short description.", bl[1].Excerpt)
}
