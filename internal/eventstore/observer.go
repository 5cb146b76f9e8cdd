package eventstore

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

const appendTimeout = 5 * time.Second

// Observer records pipeline callbacks as events. Store failures are logged
// and never affect the build.
type Observer struct {
	store   Store
	history *History
	logger  *slog.Logger
}

var _ pipeline.Observer = (*Observer)(nil)

// NewObserver returns an observer appending to store. history may be nil.
func NewObserver(store Store, history *History, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{store: store, history: history, logger: logger}
}

func (o *Observer) OnBuildStart(buildID string, mode pipeline.Mode) {
	o.record(NewBuildStarted(buildID, mode))
}

func (o *Observer) OnStageComplete(buildID string, s pipeline.StageSummary) {
	o.record(NewStageCompleted(buildID, s))
}

func (o *Observer) OnBuildComplete(r *pipeline.Report) {
	o.record(NewBuildCompleted(r))
}

func (o *Observer) record(e *Event, err error) {
	if err != nil {
		o.logger.Warn("Failed to encode build event", logfields.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := o.store.Append(ctx, e); err != nil {
		o.logger.Warn("Failed to record build event",
			logfields.BuildID(e.BuildID),
			slog.String("event", e.Type),
			logfields.Error(err))
		return
	}
	if o.history != nil {
		o.history.Apply(e)
	}
}
