// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package progress tracks how far the player is towards opening the capsule.
package progress

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Params tunes the accumulator.
type Params struct {
	Max           float64       // completion value, 100
	DecayRate     float64       // points removed per decay tick
	DecayDelay    time.Duration // idle time before decay starts
	DecayInterval time.Duration // tick period, driven by the session
}

// DefaultParams returns the progress settings shared by every mode.
func DefaultParams() Params {
	return Params{
		Max:           100,
		DecayRate:     1,
		DecayDelay:    2 * time.Second,
		DecayInterval: 100 * time.Millisecond,
	}
}

// Accumulator holds a value in [0, Max] plus a one-shot completion latch.
type Accumulator struct {
	params Params

	mu              sync.Mutex
	value           float64
	lastInteraction time.Time

	completed atomic.Bool
}

// New creates an accumulator at zero whose idle clock starts at now.
func New(p Params, now time.Time) *Accumulator {
	if p.Max <= 0 {
		p.Max = 100
	}
	return &Accumulator{params: p, lastInteraction: now}
}

// Params returns the accumulator settings.
func (a *Accumulator) Params() Params {
	return a.params
}

// Increment adds amount, clamps to Max and records the interaction time.
// justCompleted is true for exactly one caller over the accumulator's life
// (until Reset), the one whose increment reached Max first.
func (a *Accumulator) Increment(amount float64, now time.Time) (value float64, justCompleted bool) {
	a.mu.Lock()
	if amount > 0 {
		a.value = min(a.params.Max, a.value+amount)
	}
	a.lastInteraction = now
	value = a.value
	a.mu.Unlock()

	if value >= a.params.Max {
		justCompleted = a.completed.CompareAndSwap(false, true)
	}
	return value, justCompleted
}

// DecayTick lowers the value by DecayRate once the player has been idle
// for longer than DecayDelay. A completed accumulator never decays.
func (a *Accumulator) DecayTick(now time.Time) (value float64, decayed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed.Load() || a.value <= 0 {
		return a.value, false
	}
	if now.Sub(a.lastInteraction) <= a.params.DecayDelay {
		return a.value, false
	}
	a.value = max(0, a.value-a.params.DecayRate)
	return a.value, true
}

// Reset zeroes the value, re-arms the latch and restarts the idle clock.
func (a *Accumulator) Reset(now time.Time) {
	a.mu.Lock()
	a.value = 0
	a.lastInteraction = now
	a.completed.Store(false)
	a.mu.Unlock()
}

func (a *Accumulator) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func (a *Accumulator) Completed() bool {
	return a.completed.Load()
}

func (a *Accumulator) LastInteraction() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastInteraction
}

// Percent returns the value as a rounded integer percentage of Max, which
// is what the render layer displays.
func (a *Accumulator) Percent() int {
	v := a.Value()
	return int(math.Round(v / a.params.Max * 100))
}
