package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history", "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AppendAndByBuild(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	e := &Event{BuildID: "b1", Type: TypeBuildStarted, Payload: []byte(`{"mode":"full"}`)}
	require.NoError(t, store.Append(ctx, e))
	assert.Positive(t, e.ID)
	require.NoError(t, store.Append(ctx, &Event{BuildID: "b2", Type: TypeBuildStarted}))
	require.NoError(t, store.Append(ctx, &Event{BuildID: "b1", Type: TypeBuildCompleted, Payload: []byte(`{}`)}))

	events, err := store.ByBuild(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeBuildStarted, events[0].Type)
	assert.Equal(t, TypeBuildCompleted, events[1].Type)

	var p BuildStarted
	require.NoError(t, events[0].Decode(&p))
	assert.Equal(t, "full", p.Mode)
}

func TestSQLiteStore_Range(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, store.Append(ctx, &Event{
			BuildID:   "b",
			Type:      TypeStageCompleted,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	events, err := store.Range(ctx, base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Timestamp.Equal(base.Add(time.Hour)))
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Append(t.Context(), &Event{BuildID: "m", Type: TypeBuildStarted}))
	events, err := store.ByBuild(t.Context(), "m")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), &Event{BuildID: "p", Type: TypeBuildStarted}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	events, err := store.ByBuild(t.Context(), "p")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
