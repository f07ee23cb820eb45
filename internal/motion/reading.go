// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion normalizes raw driver callbacks into canonical readings.
//
// Units follow the device-motion convention used by phone sensor APIs:
// user acceleration (gravity removed) in m/s², rotation rate in rad/s,
// audio level in dBFS.
package motion

import (
	"math"
	"time"
)

// SilentDBFS is the level assumed when a metering callback carries no value.
const SilentDBFS = -160.0

// Vec3 is a linear acceleration vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RotationRate holds angular velocity around the three device axes.
type RotationRate struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Payload is what a sensor driver hands to its subscriber. Either half may
// be missing when the platform only reports one of the two sensors.
type Payload struct {
	Acceleration *Vec3         `json:"acceleration,omitempty"`
	RotationRate *RotationRate `json:"rotationRate,omitempty"`
}

// Reading is one immutable sample as seen by the classifiers.
type Reading struct {
	Timestamp  time.Time
	Accel      Vec3
	Rotation   RotationRate
	AudioLevel float64 // dBFS, valid only when HasAudio
	HasAudio   bool
	HasMotion  bool
}

// Axis names a rotation axis.
type Axis int

const (
	AxisAlpha Axis = iota
	AxisBeta
	AxisGamma
)

func (a Axis) String() string {
	switch a {
	case AxisAlpha:
		return "alpha"
	case AxisBeta:
		return "beta"
	case AxisGamma:
		return "gamma"
	default:
		return "unknown"
	}
}

// Ingest converts a driver payload into a Reading stamped at the given time.
// Missing axes default to 0.
func Ingest(at time.Time, p Payload) Reading {
	r := Reading{Timestamp: at, HasMotion: true}
	if p.Acceleration != nil {
		r.Accel = *p.Acceleration
	}
	if p.RotationRate != nil {
		r.Rotation = *p.RotationRate
	}
	return r
}

// Metering builds an audio-only reading. NaN levels are treated as silence.
func Metering(at time.Time, dbfs float64) Reading {
	if math.IsNaN(dbfs) {
		dbfs = SilentDBFS
	}
	return Reading{Timestamp: at, AudioLevel: dbfs, HasAudio: true}
}

// Magnitude returns the length of the acceleration vector.
func (r Reading) Magnitude() float64 {
	return r.Accel.Norm()
}

// Rate returns the rotation rate around the given axis.
func (r Reading) Rate(a Axis) float64 {
	switch a {
	case AxisAlpha:
		return r.Rotation.Alpha
	case AxisBeta:
		return r.Rotation.Beta
	default:
		return r.Rotation.Gamma
	}
}

// DominantAxis returns the rotation axis with the largest absolute rate.
// Ties resolve in alpha, beta, gamma order.
func (r Reading) DominantAxis() Axis {
	best := AxisAlpha
	bestAbs := math.Abs(r.Rotation.Alpha)
	if v := math.Abs(r.Rotation.Beta); v > bestAbs {
		best, bestAbs = AxisBeta, v
	}
	if v := math.Abs(r.Rotation.Gamma); v > bestAbs {
		best = AxisGamma
	}
	return best
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sign returns -1, 0 or +1.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
