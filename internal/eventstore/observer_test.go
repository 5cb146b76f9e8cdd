package eventstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/pipeline"
)

func TestObserver_RecordsBuild(t *testing.T) {
	store := newStore(t)
	h := NewHistory(store, 10)
	obs := NewObserver(store, h, nil)

	obs.OnBuildStart("b1", pipeline.ModeFull)
	obs.OnStageComplete("b1", pipeline.StageSummary{Stage: pipeline.StageDiscover, Succeeded: 4})
	obs.OnBuildComplete(finishedReport("b1", time.Now()))

	events, err := store.ByBuild(t.Context(), "b1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{TypeBuildStarted, TypeStageCompleted, TypeBuildCompleted},
		[]string{events[0].Type, events[1].Type, events[2].Type})

	s, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "b1", s.BuildID)
	assert.Equal(t, 4, s.Documents)
}

type failingStore struct{ Store }

func (failingStore) Append(context.Context, *Event) error { return errors.New("disk full") }

func TestObserver_StoreFailureDoesNotPanic(t *testing.T) {
	h := NewHistory(newStore(t), 10)
	obs := NewObserver(failingStore{}, h, nil)
	obs.OnBuildStart("b1", pipeline.ModeIncremental)
	assert.Empty(t, h.Builds(0), "unrecorded events are not projected")
}
