package graph

import (
	"strings"
	"unicode"
)

// MaxExcerpt bounds backlink excerpts, in runes.
const MaxExcerpt = 160

// excerpt cuts a window of src's text around the first mention of target's
// title or name. Without a mention it falls back to src's description, then
// to the start of its text.
func excerpt(src, target Document) string {
	text := []rune(strings.Join(strings.Fields(src.Text), " "))
	lowered := make([]rune, len(text))
	for i, r := range text {
		lowered[i] = unicode.ToLower(r)
	}

	needles := []string{target.Title, strings.ReplaceAll(lastSegment(target.Slug), "-", " ")}
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || n == "index" {
			continue
		}
		if at := indexRunes(lowered, []rune(n)); at >= 0 {
			return window(text, at)
		}
	}
	if desc := strings.Join(strings.Fields(src.Description), " "); desc != "" {
		return window([]rune(desc), 0)
	}
	return window(text, 0)
}

func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if hay[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

func window(r []rune, at int) string {
	if len(r) <= MaxExcerpt {
		return string(r)
	}
	start := max(at-MaxExcerpt/4, 0)
	end := start + MaxExcerpt
	if end > len(r) {
		end = len(r)
		start = end - MaxExcerpt
	}
	lead, trail := start > 0, end < len(r)
	if lead {
		start++
	}
	if trail {
		end--
	}
	s := strings.TrimSpace(string(r[start:end]))
	if lead {
		s = "…" + s
	}
	if trail {
		s += "…"
	}
	return s
}
