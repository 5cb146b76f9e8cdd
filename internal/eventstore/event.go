package eventstore

import (
	"encoding/json"
	"time"
)

// Event types recorded for every build.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeStageCompleted = "StageCompleted"
	TypeBuildCompleted = "BuildCompleted"
)

// Event is one stored build event. Payload holds the JSON encoding of the
// type specific payload struct.
type Event struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   json.RawMessage
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
