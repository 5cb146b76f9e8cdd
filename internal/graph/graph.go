// Package graph holds the cross-document link graph of one build.
//
// Documents live in an arena addressed by index; edges are stored separately
// as (source, target) index pairs. The graph is rebuilt from the published
// content set on every build and is never patched in place, so a removed
// document cannot leave stale edges behind.
package graph

import (
	"sort"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// Document is the graph's view of a published document.
type Document struct {
	Path        pathid.FilePath
	Slug        pathid.Slug
	Title       string
	Description string
	// Links are outgoing references in document order. They may be full slugs,
	// relative paths or bare names; Resolve decides what they point to.
	Links   []string
	Tags    []string
	Aliases []string
	// Text is the plain text body used for backlink excerpts.
	Text string
}

// Edge is a directed "links to" relation between two arena indices.
type Edge struct {
	Src int
	Dst int
}

// Backlink is one entry of BacklinksOf.
type Backlink struct {
	Source  pathid.Slug
	Path    pathid.FilePath
	Title   string
	Excerpt string
}

// Unresolved records a reference that matched no document.
type Unresolved struct {
	Source pathid.Slug
	File   pathid.FilePath
	Target string
}

// Graph is an immutable-after-build document graph. It is not safe for
// concurrent mutation; concurrent reads after Build are safe.
type Graph struct {
	nodes   []Document
	bySlug  map[pathid.Slug]int
	byAlias map[pathid.Slug]int
	byName  map[string][]int

	edges []Edge
	seen  map[Edge]struct{}
	out   [][]int
	in    [][]int

	tags       map[string][]int
	unresolved []Unresolved
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		bySlug:  make(map[pathid.Slug]int),
		byAlias: make(map[pathid.Slug]int),
		byName:  make(map[string][]int),
		seen:    make(map[Edge]struct{}),
		tags:    make(map[string][]int),
	}
}

// Build constructs the graph for docs. Documents are added in slug order so
// arena indices do not depend on input order; links are then resolved.
func Build(docs []Document) *Graph {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Slug < sorted[j].Slug
	})

	g := New()
	for _, d := range sorted {
		g.AddDocument(d)
	}
	for _, d := range sorted {
		for _, ref := range d.Links {
			g.AddEdge(d.Slug, ref)
		}
	}
	return g
}

// AddDocument places d in the arena and indexes its slug, aliases, name and
// tags. A second document with an existing slug replaces the lookup entry but
// keeps its own node.
func (g *Graph) AddDocument(d Document) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, d)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)

	g.bySlug[d.Slug] = idx
	for _, a := range d.Aliases {
		alias := pathid.NewSlug(a)
		if _, taken := g.bySlug[alias]; !taken {
			g.byAlias[alias] = idx
		}
	}
	name := lastSegment(d.Slug)
	if name == "index" {
		name = lastSegment(pathid.Slug(d.Slug.Folder()))
	}
	if name != "" {
		g.byName[name] = append(g.byName[name], idx)
	}

	seenTag := make(map[string]bool, len(d.Tags))
	for _, raw := range d.Tags {
		tag := pathid.SlugifyTag(raw)
		if tag == "" || seenTag[tag] {
			continue
		}
		seenTag[tag] = true
		g.tags[tag] = append(g.tags[tag], idx)
	}
	return idx
}

// AddEdge resolves targetRef from the document src and records the edge.
// Self links are ignored and duplicate edges collapse. A reference that
// resolves to nothing is recorded as unresolved and reported false.
func (g *Graph) AddEdge(src pathid.Slug, targetRef string) (pathid.Slug, bool) {
	si, ok := g.bySlug[src]
	if !ok {
		return "", false
	}
	target, ok := g.Resolve(src, targetRef)
	if !ok {
		if normalizeRef(targetRef) != "" {
			g.unresolved = append(g.unresolved, Unresolved{Source: src, File: g.nodes[si].Path, Target: targetRef})
		}
		return "", false
	}
	di := g.bySlug[target]
	if di == si {
		return target, true
	}
	e := Edge{Src: si, Dst: di}
	if _, dup := g.seen[e]; dup {
		return target, true
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.out[si] = append(g.out[si], di)
	g.in[di] = append(g.in[di], si)
	return target, true
}

// Len returns the number of documents.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns a copy of the edge list in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Document returns the document registered under slug.
func (g *Graph) Document(slug pathid.Slug) (Document, bool) {
	i, ok := g.bySlug[slug]
	if !ok {
		return Document{}, false
	}
	return g.nodes[i], true
}

// Documents returns all documents in slug order.
func (g *Graph) Documents() []Document {
	out := make([]Document, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Has reports whether slug names a document.
func (g *Graph) Has(slug pathid.Slug) bool {
	_, ok := g.bySlug[slug]
	return ok
}

// ForwardLinks returns the slugs slug links to, in link order.
func (g *Graph) ForwardLinks(slug pathid.Slug) []pathid.Slug {
	i, ok := g.bySlug[slug]
	if !ok {
		return nil
	}
	return g.slugs(g.out[i])
}

// BacklinksOf returns every document with a forward edge to slug, ordered by
// source file path ascending.
func (g *Graph) BacklinksOf(slug pathid.Slug) []Backlink {
	i, ok := g.bySlug[slug]
	if !ok {
		return nil
	}
	target := g.nodes[i]
	out := make([]Backlink, 0, len(g.in[i]))
	for _, si := range g.in[i] {
		src := g.nodes[si]
		out = append(out, Backlink{
			Source:  src.Slug,
			Path:    src.Path,
			Title:   src.Title,
			Excerpt: excerpt(src, target),
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

// Tags returns every tag in use, sorted.
func (g *Graph) Tags() []string {
	out := make([]string, 0, len(g.tags))
	for t := range g.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Tagged returns the documents carrying tag or any of its nested tags
// ("go" matches "go/concurrency"), sorted by slug.
func (g *Graph) Tagged(tag string) []pathid.Slug {
	tag = pathid.SlugifyTag(tag)
	if tag == "" {
		return nil
	}
	set := make(map[int]struct{})
	for t, idxs := range g.tags {
		if t == tag || (len(t) > len(tag) && t[:len(tag)] == tag && t[len(tag)] == '/') {
			for _, i := range idxs {
				set[i] = struct{}{}
			}
		}
	}
	idxs := make([]int, 0, len(set))
	for i := range set {
		idxs = append(idxs, i)
	}
	out := g.slugs(idxs)
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Unresolved returns references that matched no document, in discovery order.
func (g *Graph) Unresolved() []Unresolved {
	out := make([]Unresolved, len(g.unresolved))
	copy(out, g.unresolved)
	return out
}

func (g *Graph) slugs(idxs []int) []pathid.Slug {
	out := make([]pathid.Slug, len(idxs))
	for k, i := range idxs {
		out[k] = g.nodes[i].Slug
	}
	return out
}
