// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"time"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// ShakeParams tunes the shake detector.
type ShakeParams struct {
	Force    float64       // m/s², minimum acceleration magnitude
	Cooldown time.Duration // minimum spacing between fires
}

// Shake fires on raw acceleration magnitude alone, no directionality.
type Shake struct {
	params ShakeParams
}

// NewShake creates a shake detector.
func NewShake(p ShakeParams) *Shake {
	return &Shake{params: p}
}

func (s *Shake) Kind() Kind              { return KindShake }
func (s *Shake) Input() Input            { return InputMotion }
func (s *Shake) Cooldown() time.Duration { return s.params.Cooldown }
func (s *Shake) Fired(time.Time)         {}
func (s *Shake) Reset()                  {}

// Evaluate fires when the magnitude exceeds the force threshold. Intensity
// is the magnitude relative to twice the threshold.
func (s *Shake) Evaluate(r motion.Reading) (bool, float64) {
	mag := r.Magnitude()
	if mag <= s.params.Force {
		return false, 0
	}
	return true, clamp01(mag / (2 * s.params.Force))
}
