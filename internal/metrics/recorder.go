package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for build and stage metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|partial|aborted|canceled
	IncCacheLookup(hit bool)
	IncPluginFailure(plugin, phase string)
	IncRetry(kind string)
	SetWorkerConcurrency(n int)
	AddArtifacts(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncCacheLookup(bool)                        {}
func (NoopRecorder) IncPluginFailure(string, string)            {}
func (NoopRecorder) IncRetry(string)                            {}
func (NoopRecorder) SetWorkerConcurrency(int)                   {}
func (NoopRecorder) AddArtifacts(int)                           {}
