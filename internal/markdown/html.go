package markdown

import (
	"bytes"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// PlainText strips markup from an HTML fragment. Block boundaries become
// single spaces and whitespace runs collapse.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	b.Grow(len(fragment))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch n := string(name); {
			case n == "script" || n == "style":
				skip++
			case blockTags[n]:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch n := string(name); {
			case n == "script" || n == "style":
				if skip > 0 {
					skip--
				}
			case blockTags[n]:
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "tr": true, "td": true, "th": true,
	"dl": true, "dt": true, "dd": true, "section": true, "img": true,
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// AnchorFunc inspects and may modify an <a> start tag. It reports whether
// the tag was changed.
type AnchorFunc func(tag *html.Token) bool

// RewriteAnchors passes every anchor start tag of fragment to fn. Tags fn
// leaves unchanged, and all other markup, are copied byte for byte.
func RewriteAnchors(fragment string, fn AnchorFunc) (string, error) {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var out bytes.Buffer
	out.Grow(len(fragment) + len(fragment)/8)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return out.String(), nil
		}
		raw := z.Raw()
		if tt != html.StartTagToken {
			out.Write(raw)
			continue
		}
		// Raw is invalidated by Token, keep a copy.
		original := append([]byte(nil), raw...)
		tok := z.Token()
		if tok.Data != "a" || !fn(&tok) {
			out.Write(original)
			continue
		}
		out.WriteString(tok.String())
	}
}

// Attr returns the value of attribute key on tag.
func Attr(tag *html.Token, key string) (string, bool) {
	for _, a := range tag.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces attribute key on tag.
func SetAttr(tag *html.Token, key, val string) {
	for i := range tag.Attr {
		if tag.Attr[i].Key == key {
			tag.Attr[i].Val = val
			return
		}
	}
	tag.Attr = append(tag.Attr, html.Attribute{Key: key, Val: val})
}

// DelAttr removes attribute key from tag.
func DelAttr(tag *html.Token, key string) {
	kept := tag.Attr[:0]
	for _, a := range tag.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	tag.Attr = kept
}

// AddClass appends class to the class attribute of tag.
func AddClass(tag *html.Token, class string) {
	cur, _ := Attr(tag, "class")
	for _, c := range strings.Fields(cur) {
		if c == class {
			return
		}
	}
	SetAttr(tag, "class", strings.TrimSpace(cur+" "+class))
}
