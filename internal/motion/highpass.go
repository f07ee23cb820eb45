// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

// HighPass is a first-order high-pass filter that strips the gravity
// component from a raw accelerometer stream.
//
//	out[n] = α * (out[n-1] + in[n] - in[n-1])
type HighPass struct {
	alpha   float64
	prevIn  Vec3
	prevOut Vec3
	ready   bool
}

// NewHighPass creates a filter. Alpha close to 1 keeps more of the signal;
// 0.95 at 50–100 Hz removes gravity within a few hundred milliseconds.
func NewHighPass(alpha float64) *HighPass {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.95
	}
	return &HighPass{alpha: alpha}
}

// Filter returns the high-passed sample. The first sample primes the
// filter and yields zero.
func (h *HighPass) Filter(in Vec3) Vec3 {
	if !h.ready {
		h.prevIn = in
		h.ready = true
		return Vec3{}
	}
	a := h.alpha
	out := Vec3{
		X: a * (h.prevOut.X + in.X - h.prevIn.X),
		Y: a * (h.prevOut.Y + in.Y - h.prevIn.Y),
		Z: a * (h.prevOut.Z + in.Z - h.prevIn.Z),
	}
	h.prevIn = in
	h.prevOut = out
	return out
}

// Reset forgets the filter history.
func (h *HighPass) Reset() {
	*h = HighPass{alpha: h.alpha}
}
