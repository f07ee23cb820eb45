// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gesture turns streams of motion and audio readings into discrete
// player actions.
package gesture

import "time"

// Kind identifies a classifier and the action it detects.
type Kind string

const (
	KindShake Kind = "shake"
	KindFlick Kind = "flick" // slap, flick and grab share one detector
	KindBlow  Kind = "blow"
)

// Input tells the classifier set which readings a classifier consumes.
type Input int

const (
	InputMotion Input = iota
	InputAudio
)

// Event is an accepted classifier fire. It is consumed synchronously by
// the session and never stored.
type Event struct {
	Kind      Kind      `json:"kind"`
	Intensity float64   `json:"intensity"`
	FiredAt   time.Time `json:"fired_at"`
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// lerp01 maps v from [from, to] onto [0, 1], clamped.
func lerp01(v, from, to float64) float64 {
	if to == from {
		if v >= to {
			return 1
		}
		return 0
	}
	return clamp01((v - from) / (to - from))
}
