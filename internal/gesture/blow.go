// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"time"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// BlowParams tunes the microphone detector. Levels are dBFS.
type BlowParams struct {
	MeteringMin   float64 // fire above this smoothed level
	MeteringFloor float64 // visual intensity is 0 at or below this level
	Smoothing     float64 // 0..1, weight of the previous smoothed value; 0 disables
	SustainFrames int     // consecutive loud frames required beyond the first N
	Cooldown      time.Duration
}

// Blow fires on sustained loud microphone metering. Its visual intensity
// is tracked separately from the fire decision.
type Blow struct {
	params BlowParams

	smoothed    float64
	initialized bool
	streak      int
	intensity   float64
}

// NewBlow creates a blow detector.
func NewBlow(p BlowParams) *Blow {
	if p.Smoothing < 0 || p.Smoothing >= 1 {
		p.Smoothing = 0
	}
	return &Blow{params: p, smoothed: motion.SilentDBFS}
}

func (b *Blow) Kind() Kind              { return KindBlow }
func (b *Blow) Input() Input            { return InputAudio }
func (b *Blow) Cooldown() time.Duration { return b.params.Cooldown }
func (b *Blow) Fired(time.Time)         {}

// Evaluate smooths the level, updates the visual intensity and reports a
// fire once the level has stayed above the threshold for more than
// SustainFrames consecutive frames.
func (b *Blow) Evaluate(r motion.Reading) (bool, float64) {
	level := r.AudioLevel
	if !b.initialized || b.params.Smoothing == 0 {
		b.smoothed = level
		b.initialized = true
	} else {
		f := b.params.Smoothing
		b.smoothed = level*(1-f) + b.smoothed*f
	}

	if b.smoothed > b.params.MeteringFloor {
		b.intensity = lerp01(b.smoothed, b.params.MeteringFloor, b.params.MeteringMin)
	} else {
		b.intensity = 0
	}

	if b.smoothed <= b.params.MeteringMin {
		b.streak = 0
		return false, b.intensity
	}
	b.streak++
	if b.streak <= b.params.SustainFrames {
		return false, b.intensity
	}
	return true, b.intensity
}

// Intensity returns the last visual intensity in [0, 1].
func (b *Blow) Intensity() float64 {
	return b.intensity
}

// Level returns the last smoothed metering level.
func (b *Blow) Level() float64 {
	return b.smoothed
}

func (b *Blow) Reset() {
	b.smoothed = motion.SilentDBFS
	b.initialized = false
	b.streak = 0
	b.intensity = 0
}
