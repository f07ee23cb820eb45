// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu converts raw accelerometer and gyroscope counts into the
// units the gesture classifiers expect.
package imu

import (
	"math"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// IMURaw represents a single raw IMU sample.
type IMURaw struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// RawReader is anything that can produce raw samples on demand.
type RawReader interface {
	ReadRaw() (IMURaw, error)
}

var (
	accelFullScaleG  = [...]float64{2, 4, 8, 16}
	gyroFullScaleDPS = [...]float64{250, 500, 1000, 2000}
)

// Scale maps raw counts to physical units for a range setting
// (0..3, as written to ACCEL_CONFIG / GYRO_CONFIG).
type Scale struct {
	AccelRange byte
	GyroRange  byte
}

// AccelLSB returns m/s² per count.
func (s Scale) AccelLSB() float64 {
	return accelFullScaleG[s.AccelRange&3] * StandardGravity / 32768
}

// GyroLSB returns rad/s per count.
func (s Scale) GyroLSB() float64 {
	return gyroFullScaleDPS[s.GyroRange&3] * math.Pi / 180 / 32768
}

// Accel returns the sample's acceleration in m/s², gravity included.
func (s Scale) Accel(r IMURaw) motion.Vec3 {
	k := s.AccelLSB()
	return motion.Vec3{X: float64(r.Ax) * k, Y: float64(r.Ay) * k, Z: float64(r.Az) * k}
}

// Rotation returns the sample's angular rate in rad/s. Device X, Y and Z
// map to beta, gamma and alpha.
func (s Scale) Rotation(r IMURaw) motion.RotationRate {
	k := s.GyroLSB()
	return motion.RotationRate{
		Alpha: float64(r.Gz) * k,
		Beta:  float64(r.Gx) * k,
		Gamma: float64(r.Gy) * k,
	}
}

// Bias is a stationary offset subtracted from every scaled sample.
type Bias struct {
	Accel    motion.Vec3         `json:"accel"`
	Rotation motion.RotationRate `json:"rotation"`
}

// Converter turns raw samples into motion payloads: scale, remove bias,
// then strip gravity with a high-pass filter.
type Converter struct {
	scale Scale
	bias  Bias
	hp    *motion.HighPass
}

func NewConverter(scale Scale, bias Bias, alpha float64) *Converter {
	return &Converter{scale: scale, bias: bias, hp: motion.NewHighPass(alpha)}
}

// Convert is not safe for concurrent use; the filter keeps state.
func (c *Converter) Convert(r IMURaw) motion.Payload {
	a := c.scale.Accel(r)
	a.X -= c.bias.Accel.X
	a.Y -= c.bias.Accel.Y
	a.Z -= c.bias.Accel.Z
	user := c.hp.Filter(a)

	rot := c.scale.Rotation(r)
	rot.Alpha -= c.bias.Rotation.Alpha
	rot.Beta -= c.bias.Rotation.Beta
	rot.Gamma -= c.bias.Rotation.Gamma

	return motion.Payload{Acceleration: &user, RotationRate: &rot}
}

// Reset clears the gravity filter, e.g. after a pause in sampling.
func (c *Converter) Reset() { c.hp.Reset() }
