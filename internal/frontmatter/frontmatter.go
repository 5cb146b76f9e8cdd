// Package frontmatter splits YAML frontmatter from document bodies and
// serialises field maps deterministically.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrUnterminated is returned when a document opens a frontmatter block but
// never closes it.
var ErrUnterminated = errors.New("frontmatter opened with --- but never closed")

// Document is a source file separated into frontmatter and body.
type Document struct {
	// Raw is the frontmatter block without delimiters.
	Raw []byte
	// Body is everything after the closing delimiter.
	Body []byte
	// Present reports whether the source had a frontmatter block at all.
	Present bool
	// Newline is "\n" or "\r\n", whichever the source uses first.
	Newline string
}

// Split separates a leading `---` delimited block from the body. Sources
// without a block yield Present=false and the whole input as Body.
func Split(src []byte) (Document, error) {
	nl := newlineOf(src)
	doc := Document{Body: src, Newline: nl}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(src, open) {
		return doc, nil
	}
	rest := src[len(open):]

	// Empty block: "---\n---\n".
	if bytes.HasPrefix(rest, open) {
		doc.Raw = []byte{}
		doc.Body = rest[len(open):]
		doc.Present = true
		return doc, nil
	}

	closing := []byte(nl + "---")
	idx := bytes.Index(rest, closing)
	for idx >= 0 {
		end := idx + len(closing)
		// The delimiter must be a line of its own.
		if end == len(rest) || bytes.HasPrefix(rest[end:], []byte(nl)) {
			doc.Raw = rest[:idx+len(nl)]
			doc.Body = bytes.TrimPrefix(rest[end:], []byte(nl))
			doc.Present = true
			return doc, nil
		}
		next := bytes.Index(rest[end:], closing)
		if next < 0 {
			break
		}
		idx = end + next
	}
	return Document{}, ErrUnterminated
}

// Fields parses the frontmatter block. A missing or empty block yields an
// empty, non-nil map.
func (d Document) Fields() (map[string]any, error) {
	return ParseYAML(d.Raw)
}

// ParseYAML parses a raw block (no delimiters) into a map.
func ParseYAML(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Join reassembles a document from serialised fields and a body.
func Join(fields, body []byte, newline string) []byte {
	if newline == "" {
		newline = "\n"
	}
	var buf bytes.Buffer
	buf.Grow(len(fields) + len(body) + 8)
	buf.WriteString("---" + newline)
	buf.Write(fields)
	buf.WriteString("---" + newline)
	buf.Write(body)
	return buf.Bytes()
}

func newlineOf(src []byte) string {
	if i := bytes.IndexByte(src, '\n'); i > 0 && src[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
