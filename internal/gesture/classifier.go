// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"time"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// Classifier is a stateful detector over one input stream.
//
// Evaluate only reports that the fire condition holds; the Set decides
// whether the cooldown lets the fire through and then calls Fired.
type Classifier interface {
	Kind() Kind
	Input() Input
	Cooldown() time.Duration
	Evaluate(r motion.Reading) (fired bool, intensity float64)
	Fired(at time.Time)
	Reset()
}

// Set is the group of classifiers enabled for one game mode.
// Not safe for concurrent use; the session serializes calls.
type Set struct {
	classifiers []Classifier
	disabled    map[Kind]bool
	cooldowns   *Cooldowns
}

// NewSet groups classifiers under a shared cooldown registry.
func NewSet(classifiers ...Classifier) *Set {
	return &Set{
		classifiers: classifiers,
		disabled:    make(map[Kind]bool),
		cooldowns:   NewCooldowns(),
	}
}

// Evaluate feeds r to every enabled classifier of the matching input and
// returns the fires accepted by the cooldown gate, in classifier order.
func (s *Set) Evaluate(r motion.Reading) []Event {
	var events []Event
	for _, c := range s.classifiers {
		if s.disabled[c.Kind()] || !accepts(c.Input(), r) {
			continue
		}
		fired, intensity := c.Evaluate(r)
		if !fired {
			continue
		}
		if !s.cooldowns.TryFire(c.Kind(), r.Timestamp, c.Cooldown()) {
			continue
		}
		c.Fired(r.Timestamp)
		events = append(events, Event{Kind: c.Kind(), Intensity: intensity, FiredAt: r.Timestamp})
	}
	return events
}

func accepts(in Input, r motion.Reading) bool {
	switch in {
	case InputMotion:
		return r.HasMotion
	case InputAudio:
		return r.HasAudio
	default:
		return false
	}
}

// Has reports whether the set contains a classifier of the given kind.
func (s *Set) Has(kind Kind) bool {
	for _, c := range s.classifiers {
		if c.Kind() == kind {
			return true
		}
	}
	return false
}

// Uses reports whether any enabled classifier consumes the given input.
func (s *Set) Uses(in Input) bool {
	for _, c := range s.classifiers {
		if c.Input() == in && !s.disabled[c.Kind()] {
			return true
		}
	}
	return false
}

// Disable stops a classifier from firing for the rest of the session.
func (s *Set) Disable(kind Kind) {
	s.disabled[kind] = true
}

// DisableInput disables every classifier reading from in.
func (s *Set) DisableInput(in Input) {
	for _, c := range s.classifiers {
		if c.Input() == in {
			s.disabled[c.Kind()] = true
		}
	}
}

// Enabled reports whether kind is present and not disabled.
func (s *Set) Enabled(kind Kind) bool {
	return s.Has(kind) && !s.disabled[kind]
}

// Active lists the enabled classifier kinds.
func (s *Set) Active() []Kind {
	var kinds []Kind
	for _, c := range s.classifiers {
		if !s.disabled[c.Kind()] {
			kinds = append(kinds, c.Kind())
		}
	}
	return kinds
}

// BlowIntensity returns the continuous blow level in [0, 1] for visual
// feedback, or 0 when the set has no blow classifier.
func (s *Set) BlowIntensity() float64 {
	for _, c := range s.classifiers {
		if b, ok := c.(*Blow); ok && !s.disabled[KindBlow] {
			return b.Intensity()
		}
	}
	return 0
}

// Cooldowns exposes the registry shared by the set.
func (s *Set) Cooldowns() *Cooldowns {
	return s.cooldowns
}

// Reset clears classifier state, cooldowns and disabled flags.
func (s *Set) Reset() {
	for _, c := range s.classifiers {
		c.Reset()
	}
	s.cooldowns.Reset()
	clear(s.disabled)
}
