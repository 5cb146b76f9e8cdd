package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Incremental bool   `help:"Reuse cached content and keep the output directory" default:"true" negatable:""`
	Force       bool   `short:"f" help:"Run a full build without cache lookups (implies --no-incremental)"`
	Content     string `name:"content" help:"Override content_dir"`
	Output      string `short:"o" name:"output" help:"Override output_dir"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if b.Content != "" {
		cfg.ContentDir = b.Content
	}
	if b.Output != "" {
		cfg.OutputDir = b.Output
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := openPipeline(ctx, root, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	req := pipeline.Request{Mode: pipeline.ModeIncremental, Force: b.Force}
	if !b.Incremental || b.Force {
		req.Mode = pipeline.ModeFull
	}
	report, err := p.Run(ctx, req)
	if report != nil {
		_, _ = fmt.Fprint(g.out(), report.Summary())
	}
	return reportError(report, err)
}
