package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/tabroom/internal/bus"
)

// State represents a tab's lifecycle state.
type State string

const (
	Booting   State = "BOOTING"
	Joined    State = "JOINED"
	Active    State = "ACTIVE"
	Unloading State = "UNLOADING"
)

// EventKind is the bus kind published on every transition.
const EventKind = "tab.status_changed"

// validTransitions defines allowed state transitions. Unloading is terminal.
var validTransitions = map[State][]State{
	Booting: {Joined, Unloading},
	Joined:  {Active, Unloading},
	Active:  {Unloading},
}

// Machine tracks and enforces tab state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      EventKind,
			Timestamp: m.since,
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// Advance is Transition for callers that only care about reaching to:
// it is a no-op when the machine is already there.
func (m *Machine) Advance(to State) (bool, error) {
	if m.Current() == to {
		return false, nil
	}
	if err := m.Transition(to); err != nil {
		return false, err
	}
	return true, nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State `json:"from"`
	To   State `json:"to"`
}
