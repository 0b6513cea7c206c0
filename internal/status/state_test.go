package status

import (
	"errors"
	"testing"

	"github.com/matheus3301/meshchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Offline},
		{Booting, Error},
		{Booting, Stopping},
		{Offline, Online},
		{Offline, Stopping},
		{Online, Offline},
		{Online, Stopping},
		{Error, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	err := m.Transition(Online)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Transition(BOOTING -> ONLINE) error = %v, want ErrInvalidTransition", err)
	}
	if m.Current() != Booting {
		t.Errorf("state after rejected transition = %s, want BOOTING", m.Current())
	}
}

// TestStoppingIsTerminal verifies nothing leaves STOPPING.
func TestStoppingIsTerminal(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Stopping)
	for _, s := range []State{Booting, Offline, Online, Error} {
		if err := m.Transition(s); err == nil {
			t.Errorf("Transition(STOPPING -> %s) should fail", s)
		}
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("node.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Offline); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != EventStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, EventStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != Offline {
		t.Errorf("change = %v -> %v, want BOOTING -> OFFLINE", change.From, change.To)
	}
}

// TestLinkCycle simulates links coming and going:
// BOOTING → OFFLINE → ONLINE → OFFLINE → ONLINE → STOPPING
func TestLinkCycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Offline, Online, Offline, Online, Stopping}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Stopping {
		t.Errorf("final state = %s, want STOPPING", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:  {},
		Offline:  {Offline},
		Online:   {Offline, Online},
		Stopping: {Offline, Stopping},
		Error:    {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
