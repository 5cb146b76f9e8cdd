package eventstore

import (
	"encoding/json"
	"time"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

// BuildStarted is the payload of TypeBuildStarted.
type BuildStarted struct {
	Mode string `json:"mode"`
}

// StageCompleted is the payload of TypeStageCompleted.
type StageCompleted struct {
	Stage      string `json:"stage"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

// BuildCompleted is the payload of TypeBuildCompleted.
type BuildCompleted struct {
	Status       string   `json:"status"`
	Mode         string   `json:"mode"`
	Force        bool     `json:"force,omitempty"`
	Documents    int      `json:"documents"`
	Published    int      `json:"published"`
	CacheHits    int      `json:"cache_hits"`
	CacheMisses  int      `json:"cache_misses"`
	Artifacts    int      `json:"artifacts"`
	Removed      int      `json:"removed,omitempty"`
	Retries      int      `json:"retries,omitempty"`
	Warnings     int      `json:"warnings"`
	Failures     []string `json:"failures,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
	ManifestHash string   `json:"manifest_hash,omitempty"`
}

func newEvent(buildID, eventType string, at time.Time, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryInternal, "marshal "+eventType+" payload").
			WithContext("build_id", buildID).
			Build()
	}
	return &Event{BuildID: buildID, Type: eventType, Timestamp: at, Payload: data}, nil
}

// NewBuildStarted creates a TypeBuildStarted event.
func NewBuildStarted(buildID string, mode pipeline.Mode) (*Event, error) {
	return newEvent(buildID, TypeBuildStarted, time.Now(), BuildStarted{Mode: string(mode)})
}

// NewStageCompleted creates a TypeStageCompleted event.
func NewStageCompleted(buildID string, s pipeline.StageSummary) (*Event, error) {
	return newEvent(buildID, TypeStageCompleted, time.Now(), StageCompleted{
		Stage:      string(s.Stage),
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		DurationMS: s.Duration.Milliseconds(),
	})
}

// NewBuildCompleted creates a TypeBuildCompleted event from a finished report.
func NewBuildCompleted(r *pipeline.Report) (*Event, error) {
	p := BuildCompleted{
		Status:       string(r.Status),
		Mode:         string(r.Mode),
		Force:        r.Force,
		Documents:    r.Documents,
		Published:    r.Published,
		CacheHits:    r.CacheHits,
		CacheMisses:  r.CacheMisses,
		Artifacts:    len(r.Artifacts),
		Removed:      r.Removed,
		Retries:      r.Retries,
		Warnings:     len(r.Warnings),
		DurationMS:   r.Duration().Milliseconds(),
		ManifestHash: r.ManifestHash,
	}
	for _, f := range r.Failures {
		p.Failures = append(p.Failures, f.String())
	}
	at := r.End
	if at.IsZero() {
		at = time.Now()
	}
	return newEvent(r.BuildID, TypeBuildCompleted, at, p)
}
