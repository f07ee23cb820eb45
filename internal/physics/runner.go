// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package physics

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// Runner drives an Integrator on its own goroutine. The sensor side writes
// acceleration through atomic scalars; readers get immutable Body copies.
type Runner struct {
	integrator *Integrator
	tick       time.Duration

	ax, ay  atomic.Uint64 // float64 bits
	cut     atomic.Bool
	current atomic.Pointer[Body]
	steps   atomic.Uint64
}

// NewRunner creates a runner with the body at rest.
func NewRunner(p Params) *Runner {
	if p.TickRate <= 0 {
		p.TickRate = time.Second / 60
	}
	r := &Runner{
		integrator: NewIntegrator(p),
		tick:       p.TickRate,
	}
	r.current.Store(&Body{})
	return r
}

// SetAcceleration feeds the latest tilt. Ignored after CutFeed.
func (r *Runner) SetAcceleration(x, y float64) {
	if r.cut.Load() {
		return
	}
	r.ax.Store(math.Float64bits(x))
	r.ay.Store(math.Float64bits(y))
}

// CutFeed zeroes the input and ignores further updates so the body settles
// under friction.
func (r *Runner) CutFeed() {
	r.cut.Store(true)
	r.ax.Store(0)
	r.ay.Store(0)
}

// Body returns the latest published snapshot.
func (r *Runner) Body() Body {
	return *r.current.Load()
}

// Steps returns how many ticks have been integrated.
func (r *Runner) Steps() uint64 {
	return r.steps.Load()
}

// Run integrates at the tick rate until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Step()
		}
	}
}

// Step integrates one tick with the current input and publishes the result.
func (r *Runner) Step() Body {
	accel := Vec2{
		X: math.Float64frombits(r.ax.Load()),
		Y: math.Float64frombits(r.ay.Load()),
	}
	b := r.integrator.Step(accel)
	r.current.Store(&b)
	r.steps.Add(1)
	return b
}
