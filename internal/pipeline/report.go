package pipeline

import (
	"fmt"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
	"git.home.luguber.info/inful/docpipe/internal/recovery"
)

// Mode selects how much of the previous build is reused.
type Mode string

const (
	// ModeIncremental reuses cached content and keeps the output directory.
	ModeIncremental Mode = "incremental"
	// ModeFull may skip cache lookups (Force) and clear the output directory
	// (build.clean_output).
	ModeFull Mode = "full"
)

// Status is the overall result of a build.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusPartial  Status = "partial"
	StatusAborted  Status = "aborted"
	StatusCanceled Status = "canceled"
)

// Stage names used in summaries, metrics and logs.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageProcess  Stage = "process"
	StageFilter   Stage = "filter"
	StageEmit     Stage = "emit"
	StageFinalize Stage = "finalize"
)

// StageSummary counts the units a stage handled.
type StageSummary struct {
	Stage     Stage
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Failure is one recorded per-unit failure.
type Failure struct {
	File   pathid.FilePath
	Plugin string
	Phase  derrors.Phase
	Kind   recovery.Kind
	Err    error
}

func (f Failure) String() string {
	var b strings.Builder
	b.WriteString(string(f.Phase))
	if f.Plugin != "" {
		b.WriteString("/" + f.Plugin)
	}
	if f.File != "" {
		b.WriteString(" " + string(f.File))
	}
	fmt.Fprintf(&b, ": %v", f.Err)
	return b.String()
}

// Report summarises one Run.
type Report struct {
	BuildID string
	Mode    Mode
	Force   bool
	Status  Status
	Start   time.Time
	End     time.Time

	Files     int
	Documents int
	Assets    int
	// Processed counts documents run through the transformers this build.
	Processed   int
	CacheHits   int
	CacheMisses int
	Published   int
	Filtered    int

	Parallel bool
	Workers  int
	Chunks   int
	Retries  int

	Artifacts []pathid.FullPath
	// Removed counts stale artifacts of the previous build deleted at finalize.
	Removed      int
	ManifestHash string

	Stages   []StageSummary
	Plugins  []plugin.Stats
	Failures []Failure
	Warnings []error
}

func newReport(id string, req Request) *Report {
	return &Report{BuildID: id, Mode: req.Mode, Force: req.Force, Status: StatusSuccess, Start: time.Now()}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// HitRate is CacheHits over all documents that reached the cache check.
func (r *Report) HitRate() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}

// FailuresIn returns the failures recorded for phase.
func (r *Report) FailuresIn(phase derrors.Phase) []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Phase == phase {
			out = append(out, f)
		}
	}
	return out
}

// StageSummary returns the summary of stage, if it ran.
func (r *Report) StageSummary(stage Stage) (StageSummary, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageSummary{}, false
}

func (r *Report) addFailure(f Failure) {
	if f.Kind == "" {
		f.Kind = recovery.Classify(f.Err)
	}
	r.Failures = append(r.Failures, f)
}

// Summary renders the report for terminal output.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build %s %s in %s\n", r.BuildID, r.Status, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "  files: %d (%d documents, %d assets), published %d, filtered %d\n",
		r.Files, r.Documents, r.Assets, r.Published, r.Filtered)
	fmt.Fprintf(&b, "  cache: %d hits, %d misses (%.0f%%)\n", r.CacheHits, r.CacheMisses, r.HitRate()*100)
	if r.Parallel {
		fmt.Fprintf(&b, "  workers: %d over %d chunks\n", r.Workers, r.Chunks)
	}
	fmt.Fprintf(&b, "  artifacts: %d", len(r.Artifacts))
	if r.Removed > 0 {
		fmt.Fprintf(&b, " (%d stale removed)", r.Removed)
	}
	b.WriteString("\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "  %-9s ok=%d failed=%d %s\n", s.Stage, s.Succeeded, s.Failed, s.Duration.Round(time.Millisecond))
	}
	for _, p := range r.Plugins {
		if p.Failed > 0 {
			fmt.Fprintf(&b, "  plugin %s (%s): %d ok, %d failed\n", p.Name, p.Kind, p.Succeeded, p.Failed)
		}
	}
	for _, f := range r.Failures {
		b.WriteString("  ! " + f.String() + "\n")
	}
	if n := len(r.Warnings); n > 0 {
		fmt.Fprintf(&b, "  %d warnings\n", n)
	}
	return b.String()
}
