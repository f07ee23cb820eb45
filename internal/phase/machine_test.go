package phase

import (
	"errors"
	"testing"
)

func TestMachine_ForwardPath(t *testing.T) {
	m := NewMachine()
	var seen []Phase
	m.OnTransition(func(from, to Phase) {
		if to != from+1 {
			t.Errorf("Expected single forward step, got %s -> %s", from, to)
		}
		seen = append(seen, to)
	})

	if !m.Interact() {
		t.Fatal("Expected Idle -> Interacting")
	}
	if m.Interact() {
		t.Error("Expected repeated Interact to be a no-op")
	}
	steps := []func() error{m.Complete, m.BeginOpening, m.Reveal, m.Finish}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := []Phase{Interacting, Ready, Opening, Revealed, Complete}
	if len(seen) != len(want) {
		t.Fatalf("Expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d: got %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestMachine_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		setup []Phase
		to    Phase
	}{
		{"skip to ready", nil, Ready},
		{"backwards", []Phase{Interacting, Ready}, Interacting},
		{"reveal before opening", []Phase{Interacting, Ready}, Revealed},
		{"self loop", []Phase{Interacting}, Interacting},
		{"past complete", []Phase{Interacting, Ready, Opening, Revealed, Complete}, Idle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine()
			for _, p := range tc.setup {
				if err := m.Transition(p); err != nil {
					t.Fatalf("setup %s: %v", p, err)
				}
			}
			before := m.Current()
			err := m.Transition(tc.to)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}
			if m.Current() != before {
				t.Errorf("Expected phase to stay %s, got %s", before, m.Current())
			}
		})
	}
}

func TestMachine_Reset(t *testing.T) {
	m := NewMachine()
	calls := 0
	m.OnTransition(func(Phase, Phase) { calls++ })
	m.Interact()
	m.Reset()

	if m.Current() != Idle {
		t.Errorf("Expected Idle after Reset, got %s", m.Current())
	}
	if calls != 1 {
		t.Errorf("Expected Reset not to notify, got %d calls", calls)
	}
}

func TestPhase_Predicates(t *testing.T) {
	tests := []struct {
		p         Phase
		accepting bool
		terminal  bool
	}{
		{Idle, true, false},
		{Interacting, true, false},
		{Ready, false, false},
		{Opening, false, true},
		{Revealed, false, true},
		{Complete, false, true},
	}
	for _, tc := range tests {
		if got := tc.p.Accepting(); got != tc.accepting {
			t.Errorf("%s.Accepting() = %v", tc.p, got)
		}
		if got := tc.p.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v", tc.p, got)
		}
	}
	if Phase(42).String() != "phase(42)" {
		t.Errorf("unexpected name for unknown phase: %s", Phase(42))
	}
}

func TestPhase_TextRoundTrip(t *testing.T) {
	for p := Idle; p <= Complete; p++ {
		b, _ := p.MarshalText()
		var got Phase
		if err := got.UnmarshalText(b); err != nil || got != p {
			t.Errorf("UnmarshalText(%s) = %v, %v", b, got, err)
		}
	}
	var p Phase
	if err := p.UnmarshalText([]byte("flying")); err == nil {
		t.Error("Expected error for unknown phase")
	}
}
