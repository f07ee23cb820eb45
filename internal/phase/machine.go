// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package phase implements the forward-only lifecycle of an opening session.
package phase

import (
	"errors"
	"fmt"
	"sync"
)

// Phase is a stage of the capsule opening.
type Phase int

const (
	Idle Phase = iota
	Interacting
	Ready
	Opening
	Revealed
	Complete
)

var names = [...]string{"idle", "interacting", "ready", "opening", "revealed", "complete"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(names) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return names[p]
}

// MarshalText encodes the phase by name for JSON snapshots.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range names {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Accepting reports whether gesture input still counts in this phase.
func (p Phase) Accepting() bool {
	return p == Idle || p == Interacting
}

// Terminal reports whether listeners must be torn down in this phase.
func (p Phase) Terminal() bool {
	return p >= Opening
}

// ErrInvalidTransition is returned for any move the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid phase transition")

// allowed lists the single successor of each phase.
var allowed = map[Phase]Phase{
	Idle:        Interacting,
	Interacting: Ready,
	Ready:       Opening,
	Opening:     Revealed,
	Revealed:    Complete,
}

// Listener observes a transition after it happened.
type Listener func(from, to Phase)

// Machine holds the current phase. Transitions only move forward; the only
// way back to Idle is Reset, which is how a new session starts.
type Machine struct {
	mu        sync.Mutex
	current   Phase
	listeners []Listener
}

// NewMachine returns a machine in Idle.
func NewMachine() *Machine {
	return &Machine{}
}

// Current returns the phase.
func (m *Machine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// OnTransition registers a listener. Listeners run synchronously, in
// registration order, outside the machine lock.
func (m *Machine) OnTransition(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Transition moves to the given phase if it is the direct successor.
func (m *Machine) Transition(to Phase) error {
	m.mu.Lock()
	from := m.current
	if next, ok := allowed[from]; !ok || next != to {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.current = to
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(from, to)
	}
	return nil
}

// Interact moves Idle to Interacting. It reports whether the move happened;
// later gestures in Interacting are not an error.
func (m *Machine) Interact() bool {
	return m.Transition(Interacting) == nil
}

// Complete moves Interacting to Ready on the completion signal.
func (m *Machine) Complete() error { return m.Transition(Ready) }

// BeginOpening moves Ready to Opening after the ready delay.
func (m *Machine) BeginOpening() error { return m.Transition(Opening) }

// Reveal moves Opening to Revealed when the reveal animation ends.
func (m *Machine) Reveal() error { return m.Transition(Revealed) }

// Finish moves Revealed to Complete when the reward is collected.
func (m *Machine) Finish() error { return m.Transition(Complete) }

// Reset returns to Idle without notifying listeners.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = Idle
	m.mu.Unlock()
}
