package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves build events.
type Store interface {
	// Append adds an event. ID is assigned by the store.
	Append(ctx context.Context, e *Event) error

	// ByBuild returns the events of one build in append order.
	ByBuild(ctx context.Context, buildID string) ([]*Event, error)

	// Range returns events with start <= timestamp <= end in append order.
	Range(ctx context.Context, start, end time.Time) ([]*Event, error)

	Close() error
}
