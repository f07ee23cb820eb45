// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"math"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/history"
	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// FlickParams tunes the slap/flick/grab detector.
type FlickParams struct {
	RotationMin float64       // rad/s on the swing axis
	MovementMin float64       // m/s² acceleration magnitude
	Rejection   float64       // rad/s an opposite-signed sample must exceed to veto
	Window      time.Duration // reversal look-back
	Cooldown    time.Duration
	Axis        motion.Axis
}

// Flick detects a one-way wrist swing: enough spin, enough translation
// force, and no strong rotation the other way within the window.
type Flick struct {
	params FlickParams
	window *history.Window
}

// NewFlick creates a flick detector with its own history window.
func NewFlick(p FlickParams) *Flick {
	if p.Rejection <= 0 {
		p.Rejection = history.DefaultRejection
	}
	return &Flick{
		params: p,
		window: history.New(p.Window, p.Axis),
	}
}

func (f *Flick) Kind() Kind              { return KindFlick }
func (f *Flick) Input() Input            { return InputMotion }
func (f *Flick) Cooldown() time.Duration { return f.params.Cooldown }

// Evaluate appends r to the history and checks the three sub-conditions.
// A passing candidate clears the history whether or not the cooldown lets
// it fire, so its own follow-through cannot veto the next swing.
func (f *Flick) Evaluate(r motion.Reading) (bool, float64) {
	f.window.Append(r)

	rot := r.Rate(f.params.Axis)
	if math.Abs(rot) <= f.params.RotationMin {
		return false, 0
	}
	if r.Magnitude() <= f.params.MovementMin {
		return false, 0
	}
	if f.window.HasReversal(motion.Sign(rot), f.params.Rejection) {
		return false, 0
	}
	f.window.Reset()
	return true, clamp01(math.Abs(rot) / (2 * f.params.RotationMin))
}

func (f *Flick) Fired(time.Time) {}

func (f *Flick) Reset() {
	f.window.Reset()
}

// HistoryLen returns how many readings the reversal window holds.
func (f *Flick) HistoryLen() int {
	return f.window.Len()
}
