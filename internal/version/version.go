// Package version holds build identification set through ldflags.
package version

import "fmt"

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/docpipe/internal/version.Version=v0.3.0".
var Version = "dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `docpipe --version`.
func String() string {
	return fmt.Sprintf("docpipe %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
