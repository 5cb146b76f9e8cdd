package frontmatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		raw     string
		body    string
		present bool
	}{
		{"no frontmatter", "# Title\n", "", "# Title\n", false},
		{"block", "---\ntitle: A\n---\nbody\n", "title: A\n", "body\n", true},
		{"empty block", "---\n---\nbody", "", "body", true},
		{"closing at eof", "---\ntitle: A\n---", "title: A\n", "", true},
		{"crlf", "---\r\ntitle: A\r\n---\r\nbody", "title: A\r\n", "body", true},
		{"dash line inside", "---\na: b\n----\n---\nbody", "a: b\n----\n", "body", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Split([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.present, doc.Present)
			assert.Equal(t, tt.raw, string(doc.Raw))
			assert.Equal(t, tt.body, string(doc.Body))
		})
	}
}

func TestSplitUnterminated(t *testing.T) {
	_, err := Split([]byte("---\ntitle: A\nbody\n"))
	require.ErrorIs(t, err, ErrUnterminated)
}

func TestFields(t *testing.T) {
	doc, err := Split([]byte("---\ntitle: Hello\ntags: [a, b]\ndraft: true\n---\n"))
	require.NoError(t, err)
	fields, err := doc.Fields()
	require.NoError(t, err)
	assert.Equal(t, "Hello", fields["title"])
	assert.Equal(t, []any{"a", "b"}, fields["tags"])
	assert.Equal(t, true, fields["draft"])

	empty, err := Document{}.Fields()
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = ParseYAML([]byte("title: [unclosed"))
	require.Error(t, err)
}

func TestSerializeSortsKeys(t *testing.T) {
	out, err := Serialize(map[string]any{
		"zeta":  1,
		"alpha": "x",
		"nested": map[string]any{
			"b": true,
			"a": []any{"one", 2},
		},
	})
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "alpha: x\nnested:\n"))
	assert.True(t, strings.HasSuffix(text, "zeta: 1\n"))
	assert.Less(t, strings.Index(text, "  a:"), strings.Index(text, "  b: true"))

	again, err := Serialize(map[string]any{"alpha": "x", "zeta": 1, "nested": map[string]any{"a": []any{"one", 2}, "b": true}})
	require.NoError(t, err)
	assert.Equal(t, out, again)

	empty, err := Serialize(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestJoinRoundTrip(t *testing.T) {
	fields, err := Serialize(map[string]any{"title": "A"})
	require.NoError(t, err)
	src := Join(fields, []byte("body\n"), "")

	doc, err := Split(src)
	require.NoError(t, err)
	parsed, err := doc.Fields()
	require.NoError(t, err)
	assert.Equal(t, "A", parsed["title"])
	assert.Equal(t, "body\n", string(doc.Body))
}

func TestFingerprintIgnoresVolatileFields(t *testing.T) {
	body := []byte("# Hello\n")
	a, err := Fingerprint(map[string]any{"title": "Hello"}, body)
	require.NoError(t, err)
	require.NotEmpty(t, a)

	b, err := Fingerprint(map[string]any{"title": "Hello", "lastmod": "2024-01-01", "uid": "x"}, body)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Fingerprint(map[string]any{"title": "Other"}, body)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := Fingerprint(map[string]any{"title": "Hello"}, []byte("# Changed\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}
