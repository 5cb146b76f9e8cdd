package linkverify

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/docpipe/internal/graph"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
)

// Notify publishes one event per unresolved reference of g. Delivery
// failures are collected and returned together; they never stop the loop.
func Notify(ctx context.Context, pub Publisher, buildID string, g *graph.Graph, logger *slog.Logger) (int, error) {
	if pub == nil || g == nil {
		return 0, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	sent := 0
	for _, u := range g.Unresolved() {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ev := &BrokenLinkEvent{
			Target:     u.Target,
			SourcePath: string(u.File),
			SourceSlug: string(u.Source),
			BuildID:    buildID,
		}
		if d, ok := g.Document(u.Source); ok {
			ev.SourceTitle = d.Title
		}
		if err := pub.Publish(ctx, ev); err != nil {
			logger.Warn("Failed to publish broken link event",
				logfields.File(ev.SourcePath), logfields.Target(ev.Target), logfields.Error(err))
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
