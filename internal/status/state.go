package status

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/meshchat/internal/bus"
)

// State represents a node runtime state.
type State string

const (
	Booting  State = "BOOTING"
	Offline  State = "OFFLINE"
	Online   State = "ONLINE"
	Stopping State = "STOPPING"
	Error    State = "ERROR"
)

// ErrInvalidTransition is returned for a move the state graph does not allow.
var ErrInvalidTransition = errors.New("invalid transition")

// EventStatusChanged is published on every successful transition.
const EventStatusChanged = "node.status_changed"

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:  {Offline, Stopping, Error},
	Offline:  {Online, Stopping, Error},
	Online:   {Offline, Stopping, Error},
	Stopping: {},
	Error:    {Booting},
}

// Machine tracks and enforces node runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.NewEvent(EventStatusChanged, StatusChange{From: from, To: to}))
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
