package graph

import (
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

var stripExts = []string{".md", ".markdown", ".html", ".htm"}

// normalizeRef strips anchors, queries and source extensions from a link
// reference. External references normalise to "".
func normalizeRef(ref string) string {
	r := strings.TrimSpace(ref)
	if r == "" || strings.Contains(r, "://") || strings.HasPrefix(r, "mailto:") || strings.HasPrefix(r, "tel:") {
		return ""
	}
	if i := strings.IndexAny(r, "#?"); i >= 0 {
		r = r[:i]
	}
	if dec, err := url.PathUnescape(r); err == nil {
		r = dec
	}
	r = strings.ReplaceAll(r, "\\", "/")
	lower := strings.ToLower(r)
	for _, ext := range stripExts {
		if strings.HasSuffix(lower, ext) {
			r = r[:len(r)-len(ext)]
			break
		}
	}
	if len(r) > 1 {
		r = strings.TrimSuffix(r, "/")
	}
	return r
}

// slugifyRef turns a cleaned slash path into a slug, slugifying each segment
// and mapping index-like names onto "index".
func slugifyRef(p string) pathid.Slug {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return "index"
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for i, s := range segs {
		if i == len(segs)-1 {
			for _, n := range pathid.IndexNames {
				if strings.EqualFold(s, n) {
					s = "index"
				}
			}
		}
		out = append(out, pathid.SlugifySegment(s))
	}
	return pathid.Slug(strings.Join(out, "/"))
}

// Resolve maps a reference found in document from onto a document slug.
//
// "./" and "../" references resolve against from's folder only. References
// with a leading "/" resolve against the content root only. Any other
// reference is tried relative to from's folder, then from the root, and
// finally, when it has no folder part, by bare document name. At every step
// the slug itself, its folder index and document aliases are considered.
func (g *Graph) Resolve(from pathid.Slug, ref string) (pathid.Slug, bool) {
	r := normalizeRef(ref)
	if r == "" {
		return "", false
	}

	var bases []string
	bare := false
	switch {
	case strings.HasPrefix(r, "./") || strings.HasPrefix(r, "../"):
		bases = []string{from.Folder()}
	case strings.HasPrefix(r, "/"):
		bases = []string{""}
		r = strings.TrimPrefix(r, "/")
	default:
		bases = []string{from.Folder(), ""}
		bare = !strings.Contains(r, "/")
	}

	for _, base := range bases {
		if slug, ok := g.lookup(slugifyRef(path.Join("/", base, r))); ok {
			return slug, true
		}
	}

	if bare {
		return g.byBareName(pathid.SlugifySegment(r))
	}
	return "", false
}

func (g *Graph) lookup(s pathid.Slug) (pathid.Slug, bool) {
	candidates := []pathid.Slug{s}
	if s != "index" && lastSegment(s) != "index" {
		candidates = append(candidates, s+"/index")
	}
	for _, c := range candidates {
		if _, ok := g.bySlug[c]; ok {
			return c, true
		}
		if i, ok := g.byAlias[c]; ok {
			return g.nodes[i].Slug, true
		}
	}
	return "", false
}

// byBareName picks the shallowest document whose last slug segment equals
// name; ties go to the smallest slug.
func (g *Graph) byBareName(name string) (pathid.Slug, bool) {
	idxs := g.byName[name]
	if len(idxs) == 0 {
		return "", false
	}
	best := g.nodes[idxs[0]].Slug
	for _, i := range idxs[1:] {
		s := g.nodes[i].Slug
		ds, db := strings.Count(string(s), "/"), strings.Count(string(best), "/")
		if ds < db || (ds == db && s < best) {
			best = s
		}
	}
	return best, true
}

func lastSegment(s pathid.Slug) string {
	str := string(s)
	if i := strings.LastIndex(str, "/"); i >= 0 {
		return str[i+1:]
	}
	return str
}
