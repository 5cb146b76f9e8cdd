package pipeline

import (
	"git.home.luguber.info/inful/docpipe/internal/metrics"
)

// Observer receives callbacks around stage execution and the build
// lifecycle. Callbacks run on the build goroutine and must not block.
type Observer interface {
	OnBuildStart(buildID string, mode Mode)
	OnStageComplete(buildID string, summary StageSummary)
	OnBuildComplete(report *Report)
}

// NoopObserver ignores every callback.
type NoopObserver struct{}

func (NoopObserver) OnBuildStart(string, Mode)            {}
func (NoopObserver) OnStageComplete(string, StageSummary) {}
func (NoopObserver) OnBuildComplete(*Report)              {}

// RecorderObserver adapts a metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (RecorderObserver) OnBuildStart(string, Mode) {}

func (o RecorderObserver) OnStageComplete(_ string, s StageSummary) {
	if o.Recorder == nil {
		return
	}
	o.Recorder.ObserveStageDuration(string(s.Stage), s.Duration)
	result := metrics.ResultSuccess
	if s.Failed > 0 {
		result = metrics.ResultWarning
	}
	o.Recorder.IncStageResult(string(s.Stage), result)
}

func (o RecorderObserver) OnBuildComplete(r *Report) {
	if o.Recorder == nil {
		return
	}
	o.Recorder.ObserveBuildDuration(r.Duration())
	o.Recorder.IncBuildOutcome(string(r.Status))
	o.Recorder.AddArtifacts(len(r.Artifacts))
	for _, f := range r.Failures {
		if f.Plugin != "" {
			o.Recorder.IncPluginFailure(f.Plugin, string(f.Phase))
		}
	}
}

type observers []Observer

func (all observers) OnBuildStart(id string, mode Mode) {
	for _, o := range all {
		o.OnBuildStart(id, mode)
	}
}

func (all observers) OnStageComplete(id string, s StageSummary) {
	for _, o := range all {
		o.OnStageComplete(id, s)
	}
}

func (all observers) OnBuildComplete(r *Report) {
	for _, o := range all {
		o.OnBuildComplete(r)
	}
}
