// Package pathid provides branded identifiers for the three path spaces the
// pipeline works with: absolute OS paths, content-relative source paths and
// URL slugs. Values of one space are never implicitly usable as another;
// conversions go through the functions in this package.
package pathid

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FullPath is an absolute path on the local filesystem.
type FullPath string

// FilePath identifies a source file: slash separated, relative to the content
// root, NFC normalised. It is the FileIdentity used by the cache and the
// worker pool and is unique per source file within one build.
type FilePath string

// Slug identifies a published document in URL space ("guides/getting-started").
// It carries no file extension and never starts or ends with a slash.
type Slug string

func (p FullPath) String() string { return string(p) }
func (p FilePath) String() string { return string(p) }
func (s Slug) String() string     { return string(s) }

// Ext returns the lower-cased extension of the source path including the dot.
func (p FilePath) Ext() string {
	return strings.ToLower(path.Ext(string(p)))
}

// Dir returns the folder part of the source path ("" for the content root).
func (p FilePath) Dir() string {
	d := path.Dir(string(p))
	if d == "." {
		return ""
	}
	return d
}

// Base returns the file name without extension.
func (p FilePath) Base() string {
	b := path.Base(string(p))
	return strings.TrimSuffix(b, path.Ext(b))
}

// Join returns the absolute location of p below root.
func (p FilePath) Join(root FullPath) FullPath {
	return FullPath(filepath.Join(string(root), filepath.FromSlash(string(p))))
}

// Rel converts an absolute path into a FilePath relative to root. It fails if
// full is not located below root.
func Rel(root, full FullPath) (FilePath, error) {
	rel, err := filepath.Rel(string(root), string(full))
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", full, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s escapes content root %s", full, root)
	}
	return NewFilePath(rel), nil
}

// NewFilePath canonicalises a raw relative path: backslashes become slashes,
// "." segments are cleaned and the string is NFC normalised so that visually
// identical names from different filesystems compare equal.
func NewFilePath(raw string) FilePath {
	p := strings.ReplaceAll(raw, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		p = ""
	}
	return FilePath(norm.NFC.String(p))
}

// IndexNames are file base names that stand for their folder.
var IndexNames = []string{"index", "_index", "readme"}

// IsIndex reports whether the file stands for its containing folder.
func (p FilePath) IsIndex() bool {
	base := strings.ToLower(p.Base())
	for _, n := range IndexNames {
		if base == n {
			return true
		}
	}
	return false
}

// SlugOf derives the slug of a source file: extension removed, every path
// segment slugified, and folder index files mapped to "<folder>/index".
func SlugOf(p FilePath) Slug {
	dir := p.Dir()
	base := p.Base()
	if p.IsIndex() {
		base = "index"
	}
	parts := make([]string, 0, 4)
	if dir != "" {
		for _, seg := range strings.Split(dir, "/") {
			parts = append(parts, SlugifySegment(seg))
		}
	}
	parts = append(parts, SlugifySegment(base))
	return Slug(strings.Join(parts, "/"))
}

// NewSlug canonicalises a raw slug-like string without slugifying it.
func NewSlug(raw string) Slug {
	s := strings.Trim(strings.ReplaceAll(raw, "\\", "/"), "/")
	if s == "" {
		return "index"
	}
	return Slug(path.Clean(s))
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SlugifySegment lower-cases a single path segment, folds diacritics to their
// base letters and replaces anything other than letters, digits, '-' and '_'
// with '-'. Runs of '-' collapse into one. "&" becomes "-and-" and "%" becomes
// "-percent" as readers expect those to survive in URLs.
func SlugifySegment(seg string) string {
	folded, _, err := transform.String(stripMarks, seg)
	if err != nil {
		folded = seg
	}
	folded = strings.ReplaceAll(folded, "&", "-and-")
	folded = strings.ReplaceAll(folded, "%", "-percent")

	var b strings.Builder
	b.Grow(len(folded))
	lastDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "-"
	}
	return out
}

// SlugifyTag normalises a tag: nested tags keep their '/' separators, each
// level is slugified.
func SlugifyTag(tag string) string {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	segs := strings.Split(tag, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, SlugifySegment(s))
		}
	}
	return strings.Join(out, "/")
}

// Folder returns the slug of the folder containing s ("" at the root).
func (s Slug) Folder() string {
	d := path.Dir(string(s))
	if d == "." {
		return ""
	}
	return d
}

// Simplify drops a trailing "index" segment, so "a/index" becomes "a" and the
// root index becomes "".
func (s Slug) Simplify() string {
	str := string(s)
	if str == "index" {
		return ""
	}
	return strings.TrimSuffix(str, "/index")
}

// OutputFile returns the artifact path for a slug with the given extension,
// relative to the output directory.
func (s Slug) OutputFile(ext string) FilePath {
	return FilePath(string(s) + ext)
}

// RelativeTo computes the relative URL from the page at `from` to the page at
// `to`, suitable for href attributes in emitted HTML.
func RelativeTo(from, to Slug) string {
	fromDir := from.Folder()
	target := string(to)
	if fromDir == "" {
		return "./" + target
	}
	depth := strings.Count(fromDir, "/") + 1
	return strings.Repeat("../", depth) + target
}
