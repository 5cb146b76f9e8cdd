package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docpipe/internal/eventstore"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return derrors.ConfigError("build history is disabled; set history.path").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	hist := eventstore.NewHistory(store, h.Limit)
	if err := hist.Rebuild(context.Background()); err != nil {
		return derrors.FileSystemError("read build history", err).Build()
	}
	builds := hist.Builds(h.Limit)
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(g.out(), "no builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tBUILD\tMODE\tSTATUS\tDOCS\tHITS\tARTIFACTS\tFAILURES\tDURATION")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			b.StartedAt.Local().Format(time.DateTime),
			shortID(b.BuildID),
			b.Mode,
			b.Status,
			b.Documents,
			b.CacheHits,
			b.Artifacts,
			len(b.Failures),
			b.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
