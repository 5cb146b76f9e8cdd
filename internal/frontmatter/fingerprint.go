package frontmatter

import (
	"strings"

	"github.com/inful/mdfp"
)

// volatile fields never contribute to a fingerprint.
var volatile = map[string]struct{}{
	mdfp.FingerprintField: {},
	"lastmod":             {},
	"uid":                 {},
	"aliases":             {},
}

// Fingerprint computes the mdfp content fingerprint of a document from its
// fields and body, ignoring fields that change without the content changing.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	stable := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, skip := volatile[k]; !skip {
			stable[k] = v
		}
	}
	fm := ""
	if len(stable) > 0 {
		raw, err := Serialize(stable)
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(raw), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}
