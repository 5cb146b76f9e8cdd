// Package eventstore records build events in SQLite and projects them into a
// build history.
package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StatusRunning marks a build with no completion event yet.
const StatusRunning = "running"

// StageRecord is one completed stage of a build.
type StageRecord struct {
	Stage     string        `json:"stage"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID      string        `json:"build_id"`
	Mode         string        `json:"mode"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Documents    int           `json:"documents"`
	Published    int           `json:"published"`
	CacheHits    int           `json:"cache_hits"`
	CacheMisses  int           `json:"cache_misses"`
	Artifacts    int           `json:"artifacts"`
	Warnings     int           `json:"warnings"`
	Failures     []string      `json:"failures,omitempty"`
	Stages       []StageRecord `json:"stages,omitempty"`
	ManifestHash string        `json:"manifest_hash,omitempty"`
}

// History maintains an in-memory view of past builds rebuilt from a Store.
type History struct {
	mu      sync.RWMutex
	store   Store
	builds  map[string]*BuildSummary
	maxSize int
}

// NewHistory creates a projection over store keeping at most maxSize builds.
func NewHistory(store Store, maxSize int) *History {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &History{store: store, builds: make(map[string]*BuildSummary), maxSize: maxSize}
}

// Rebuild replays every stored event.
func (h *History) Rebuild(ctx context.Context) error {
	events, err := h.store.Range(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.builds = make(map[string]*BuildSummary)
	for _, e := range events {
		h.applyLocked(e)
	}
	h.pruneLocked()
	return nil
}

// Apply folds one event into the projection.
func (h *History) Apply(e *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.applyLocked(e)
	h.pruneLocked()
}

func (h *History) applyLocked(e *Event) {
	if e.BuildID == "" {
		return
	}
	s, ok := h.builds[e.BuildID]
	if !ok {
		s = &BuildSummary{BuildID: e.BuildID, Status: StatusRunning, StartedAt: e.Timestamp}
		h.builds[e.BuildID] = s
	}

	switch e.Type {
	case TypeBuildStarted:
		var p BuildStarted
		if err := e.Decode(&p); err == nil {
			s.Mode = p.Mode
		}
		s.StartedAt = e.Timestamp

	case TypeStageCompleted:
		var p StageCompleted
		if err := e.Decode(&p); err == nil {
			s.Stages = append(s.Stages, StageRecord{
				Stage:     p.Stage,
				Succeeded: p.Succeeded,
				Failed:    p.Failed,
				Duration:  time.Duration(p.DurationMS) * time.Millisecond,
			})
		}

	case TypeBuildCompleted:
		var p BuildCompleted
		if err := e.Decode(&p); err != nil {
			return
		}
		at := e.Timestamp
		s.CompletedAt = &at
		s.Duration = time.Duration(p.DurationMS) * time.Millisecond
		s.Status = p.Status
		if p.Mode != "" {
			s.Mode = p.Mode
		}
		s.Documents = p.Documents
		s.Published = p.Published
		s.CacheHits = p.CacheHits
		s.CacheMisses = p.CacheMisses
		s.Artifacts = p.Artifacts
		s.Warnings = p.Warnings
		s.Failures = p.Failures
		s.ManifestHash = p.ManifestHash
	}
}

// pruneLocked keeps the newest maxSize builds.
func (h *History) pruneLocked() {
	if len(h.builds) <= h.maxSize {
		return
	}
	for _, s := range h.sortedLocked()[h.maxSize:] {
		delete(h.builds, s.BuildID)
	}
}

func (h *History) sortedLocked() []*BuildSummary {
	out := make([]*BuildSummary, 0, len(h.builds))
	for _, s := range h.builds {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].BuildID > out[j].BuildID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Builds returns up to limit builds, newest first. limit <= 0 returns all.
func (h *History) Builds(limit int) []BuildSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sorted := h.sortedLocked()
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]BuildSummary, len(sorted))
	for i, s := range sorted {
		out[i] = *s
	}
	return out
}

// Build returns the summary of one build.
func (h *History) Build(buildID string) (BuildSummary, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.builds[buildID]
	if !ok {
		return BuildSummary{}, false
	}
	return *s, true
}

// Last returns the most recently completed build.
func (h *History) Last() (BuildSummary, bool) {
	for _, s := range h.Builds(0) {
		if s.Status != StatusRunning {
			return s, true
		}
	}
	return BuildSummary{}, false
}
