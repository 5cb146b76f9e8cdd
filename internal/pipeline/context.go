package pipeline

import (
	"log/slog"

	"git.home.luguber.info/inful/docpipe/internal/discovery"
	"git.home.luguber.info/inful/docpipe/internal/graph"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// BuildContext is the state of one Run, handed from stage to stage.
type BuildContext struct {
	ID      string
	Request Request
	Logger  *slog.Logger
	Report  *Report
	// Plugin is the context given to every plugin call of this build.
	Plugin *plugin.Context

	Documents []discovery.File
	Assets    []discovery.File
	// Contents holds processed documents sorted by FilePath.
	Contents  []*plugin.Content
	Published []*plugin.Content
	Graph     *graph.Graph
	Artifacts []pathid.FullPath

	// discovered is set once discovery completed; prune uses it.
	discovered map[pathid.FilePath]struct{}
}

// useCache reports whether cached content may be reused.
func (bc *BuildContext) useCache() bool {
	return !(bc.Request.Mode == ModeFull && bc.Request.Force)
}
