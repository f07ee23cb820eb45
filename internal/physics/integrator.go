// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package physics simulates the capsule body pushed around by device tilt.
package physics

import (
	"math"
	"time"
)

// Vec2 is a point or velocity in screen units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is a symmetric box around the origin: |x| <= HalfWidth, |y| <= HalfHeight.
type Bounds struct {
	HalfWidth  float64 `json:"half_width"`
	HalfHeight float64 `json:"half_height"`
}

// Params tunes the integrator.
type Params struct {
	Friction         float64
	AccelScale       float64
	BounceFactor     float64
	RotationCoupling float64
	Bounds           Bounds
	TickRate         time.Duration
}

// DefaultParams returns the capsule settings: 60 Hz inside a 234x202 box.
func DefaultParams() Params {
	return Params{
		Friction:         0.92,
		AccelScale:       2.5,
		BounceFactor:     0.6,
		RotationCoupling: 0.3,
		Bounds:           Bounds{HalfWidth: 117, HalfHeight: 101},
		TickRate:         time.Second / 60,
	}
}

// Body is an immutable snapshot of the simulated capsule.
type Body struct {
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Rotation float64 `json:"rotation"`
}

// Integrator advances a Body one tick at a time. Not safe for concurrent
// use; Runner owns one per goroutine.
type Integrator struct {
	params Params
	body   Body
}

// NewIntegrator creates an integrator with the body at rest at the origin.
func NewIntegrator(p Params) *Integrator {
	return &Integrator{params: p}
}

// Body returns the current state.
func (in *Integrator) Body() Body {
	return in.body
}

// Step applies one tick of acceleration. Non-finite components count as 0.
func (in *Integrator) Step(accel Vec2) Body {
	p := in.params
	b := &in.body

	ax, ay := finite(accel.X), finite(accel.Y)

	b.Velocity.X = (b.Velocity.X + ax*p.AccelScale) * p.Friction
	b.Velocity.Y = (b.Velocity.Y + ay*p.AccelScale) * p.Friction

	b.Position.X += b.Velocity.X
	b.Position.Y += b.Velocity.Y

	b.Position.X, b.Velocity.X = bounce(b.Position.X, b.Velocity.X, p.Bounds.HalfWidth, p.BounceFactor)
	b.Position.Y, b.Velocity.Y = bounce(b.Position.Y, b.Velocity.Y, p.Bounds.HalfHeight, p.BounceFactor)

	b.Rotation += (b.Velocity.X + b.Velocity.Y) * p.RotationCoupling
	return in.body
}

// Reset puts the body back at rest at the origin.
func (in *Integrator) Reset() {
	in.body = Body{}
}

func bounce(pos, vel, limit, factor float64) (float64, float64) {
	switch {
	case pos > limit:
		return limit, -vel * factor
	case pos < -limit:
		return -limit, -vel * factor
	default:
		return pos, vel
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
