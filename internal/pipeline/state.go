package pipeline

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of a Pipeline.
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateProcessing  State = "processing"
	StateFiltering   State = "filtering"
	StateEmitting    State = "emitting"
	StateFinalizing  State = "finalizing"
	StateAborted     State = "aborted"
)

var transitions = map[State][]State{
	StateIdle:        {StateDiscovering},
	StateDiscovering: {StateProcessing, StateFinalizing, StateAborted},
	StateProcessing:  {StateFiltering, StateFinalizing, StateAborted},
	StateFiltering:   {StateEmitting, StateFinalizing, StateAborted},
	StateEmitting:    {StateFinalizing, StateAborted},
	StateFinalizing:  {StateIdle, StateAborted},
	StateAborted:     {StateIdle},
}

// StateMachine guards the lifecycle of one pipeline. It is safe for
// concurrent use; readers may poll Current while a build runs.
type StateMachine struct {
	mu      sync.RWMutex
	current State
	onEnter func(from, to State)
}

// NewStateMachine starts in StateIdle. onEnter, if set, runs after every
// accepted transition.
func NewStateMachine(onEnter func(from, to State)) *StateMachine {
	return &StateMachine{current: StateIdle, onEnter: onEnter}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CanTransition reports whether to is reachable from the current state.
func (m *StateMachine) CanTransition(to State) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return allowed(m.current, to)
}

// Transition moves to the given state or fails when the move is illegal.
func (m *StateMachine) Transition(to State) error {
	m.mu.Lock()
	from := m.current
	if !allowed(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("illegal pipeline transition %s -> %s", from, to)
	}
	m.current = to
	m.mu.Unlock()
	if m.onEnter != nil {
		m.onEnter(from, to)
	}
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
