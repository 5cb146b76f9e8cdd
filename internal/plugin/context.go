package plugin

import (
	"log/slog"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/graph"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// Context carries build-scoped, read-only state to plugins. One Context is
// created per build; Graph is set before the emitter stage.
type Context struct {
	BuildID    string
	ContentDir pathid.FullPath
	OutputDir  pathid.FullPath
	Site       config.SiteConfig

	// Assets are non-document files discovered under the content root.
	Assets []pathid.FilePath
	// Graph is nil until the emitter stage.
	Graph *graph.Graph

	Logger *slog.Logger
}

// Log returns the context logger, falling back to the default logger.
func (c *Context) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// OutputPath returns the absolute location of rel below the output directory.
func (c *Context) OutputPath(rel pathid.FilePath) pathid.FullPath {
	return rel.Join(c.OutputDir)
}
