// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history keeps a time-bounded ring of recent motion readings.
package history

import (
	"math"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

const (
	// DefaultWidth is the trailing duration kept by a window.
	DefaultWidth = 200 * time.Millisecond
	// DefaultRejection is the rotation rate (rad/s) an opposite-signed
	// sample must exceed to count as a reversal.
	DefaultRejection = 2.0

	minCapacity = 16
)

// Window is a ring of readings no older than its width. Every retained
// entry satisfies now - entry.Timestamp < width after each Append/Evict.
//
// Window is not safe for concurrent use; the owning session serializes
// access.
type Window struct {
	width time.Duration
	axis  motion.Axis

	buf  []motion.Reading
	head int
	n    int
}

// New creates a window of the given width whose reversal queries look at
// the given rotation axis.
func New(width time.Duration, axis motion.Axis) *Window {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Window{
		width: width,
		axis:  axis,
		buf:   make([]motion.Reading, minCapacity),
	}
}

// Width returns the trailing duration of the window.
func (w *Window) Width() time.Duration { return w.width }

// Len returns the number of retained readings.
func (w *Window) Len() int { return w.n }

// Append adds a reading at the tail and evicts everything that has aged
// out relative to it.
func (w *Window) Append(r motion.Reading) {
	if w.n == len(w.buf) {
		w.grow()
	}
	w.buf[(w.head+w.n)%len(w.buf)] = r
	w.n++
	w.Evict(r.Timestamp)
}

// Evict drops head entries with now - timestamp >= width.
func (w *Window) Evict(now time.Time) {
	for w.n > 0 {
		oldest := w.buf[w.head]
		if now.Sub(oldest.Timestamp) < w.width {
			return
		}
		w.buf[w.head] = motion.Reading{}
		w.head = (w.head + 1) % len(w.buf)
		w.n--
	}
}

// HasReversal reports whether any retained reading rotates against sign
// with a magnitude above threshold. A one-way swing speeds up and slows
// down without crossing zero hard; pocket jiggle does.
func (w *Window) HasReversal(sign int, threshold float64) bool {
	if sign == 0 {
		return false
	}
	for i := 0; i < w.n; i++ {
		v := w.buf[(w.head+i)%len(w.buf)].Rate(w.axis)
		if motion.Sign(v) == -sign && math.Abs(v) > threshold {
			return true
		}
	}
	return false
}

// Each calls fn for every retained reading, oldest first.
func (w *Window) Each(fn func(motion.Reading)) {
	for i := 0; i < w.n; i++ {
		fn(w.buf[(w.head+i)%len(w.buf)])
	}
}

// Reset drops all readings and keeps the allocated ring.
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = motion.Reading{}
	}
	w.head = 0
	w.n = 0
}

func (w *Window) grow() {
	next := make([]motion.Reading, len(w.buf)*2)
	for i := 0; i < w.n; i++ {
		next[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	w.buf = next
	w.head = 0
}
