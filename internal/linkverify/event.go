// Package linkverify publishes events for links that resolve to no document.
package linkverify

import (
	"time"
)

// BrokenLinkEvent describes one unresolved link found while building. It is
// published for downstream processing such as opening issues.
type BrokenLinkEvent struct {
	// Target is the reference as written in the source document.
	Target string `json:"target"`

	SourcePath  string `json:"source_path"`
	SourceSlug  string `json:"source_slug"`
	SourceTitle string `json:"source_title,omitempty"`

	BuildID   string    `json:"build_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
