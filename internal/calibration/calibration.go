// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration measures the stationary bias of the IMU so the
// gesture thresholds see zero when the device is at rest.
//
// The device must lie flat, Z axis up, and stay still for the capture.
package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/imu"
	"github.com/relabs-tech/gesture_engine/internal/motion"
)

const (
	DefaultDuration = 5 * time.Second
	DefaultRate     = 100 // Hz

	// stillness heuristics, m/s² and rad/s
	accelStdGood = 0.05
	accelStdBad  = 0.30
	gyroStdGood  = 0.01
	gyroStdBad   = 0.05

	confFloor = 0.05
)

var ErrNoSamples = errors.New("calibration: no samples captured")

// Stats summarizes one axis triple over a capture.
type Stats struct {
	Samples     int         `json:"samples"`
	DurationSec float64     `json:"duration_sec"`
	Mean        motion.Vec3 `json:"mean"`
	MeanAbs     motion.Vec3 `json:"mean_abs"`
	StdDev      motion.Vec3 `json:"stddev"`
}

// Result is the calibration file format.
type Result struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	AccelRange byte `json:"accel_range"`
	GyroRange  byte `json:"gyro_range"`

	Bias imu.Bias `json:"bias"`

	AccelStats      Stats   `json:"accel_stats"`
	GyroStats       Stats   `json:"gyro_stats"`
	AccelConfidence float64 `json:"accel_confidence"`
	GyroConfidence  float64 `json:"gyro_confidence"`
}

// Confidence is the weaker of the two stillness scores.
func (r Result) Confidence() float64 {
	return math.Min(r.AccelConfidence, r.GyroConfidence)
}

// Capture samples reader at rate Hz for dur and derives the bias.
func Capture(ctx context.Context, reader imu.RawReader, scale imu.Scale, dur time.Duration, rate int) (Result, error) {
	if rate <= 0 {
		rate = DefaultRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	start := time.Now()
	deadline := start.Add(dur)
	var accel []motion.Vec3
	var gyro []motion.Vec3

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
		raw, err := reader.ReadRaw()
		if err != nil {
			return Result{}, fmt.Errorf("calibration read: %w", err)
		}
		accel = append(accel, scale.Accel(raw))
		r := scale.Rotation(raw)
		gyro = append(gyro, motion.Vec3{X: r.Alpha, Y: r.Beta, Z: r.Gamma})
	}
	return Compute(accel, gyro, scale, time.Since(start))
}

// Compute derives the result from captured samples. Gyro samples carry
// alpha, beta and gamma in X, Y and Z.
func Compute(accel, gyro []motion.Vec3, scale imu.Scale, dur time.Duration) (Result, error) {
	if len(accel) == 0 || len(gyro) == 0 {
		return Result{}, ErrNoSamples
	}
	as := ComputeStats(accel, dur)
	gs := ComputeStats(gyro, dur)

	res := Result{
		Version:    1,
		Timestamp:  time.Now().UTC(),
		AccelRange: scale.AccelRange,
		GyroRange:  scale.GyroRange,
		AccelStats: as,
		GyroStats:  gs,
	}
	res.Bias.Accel = motion.Vec3{X: as.Mean.X, Y: as.Mean.Y, Z: as.Mean.Z - imu.StandardGravity}
	res.Bias.Rotation = motion.RotationRate{Alpha: gs.Mean.X, Beta: gs.Mean.Y, Gamma: gs.Mean.Z}
	res.AccelConfidence = StillnessConfidence(as.StdDev, accelStdGood, accelStdBad)
	res.GyroConfidence = StillnessConfidence(gs.StdDev, gyroStdGood, gyroStdBad)
	return res, nil
}

// ComputeStats returns mean, mean absolute value and population standard
// deviation per axis.
func ComputeStats(values []motion.Vec3, dur time.Duration) Stats {
	n := len(values)
	if n == 0 {
		return Stats{DurationSec: dur.Seconds()}
	}
	var sx, sy, sz float64
	var sax, say, saz float64
	for _, v := range values {
		sx += v.X
		sy += v.Y
		sz += v.Z
		sax += math.Abs(v.X)
		say += math.Abs(v.Y)
		saz += math.Abs(v.Z)
	}
	fn := float64(n)
	mean := motion.Vec3{X: sx / fn, Y: sy / fn, Z: sz / fn}
	meanAbs := motion.Vec3{X: sax / fn, Y: say / fn, Z: saz / fn}

	var vx, vy, vz float64
	for _, v := range values {
		dx := v.X - mean.X
		dy := v.Y - mean.Y
		dz := v.Z - mean.Z
		vx += dx * dx
		vy += dy * dy
		vz += dz * dz
	}
	return Stats{
		Samples:     n,
		DurationSec: dur.Seconds(),
		Mean:        mean,
		MeanAbs:     meanAbs,
		StdDev:      motion.Vec3{X: math.Sqrt(vx / fn), Y: math.Sqrt(vy / fn), Z: math.Sqrt(vz / fn)},
	}
}

// StillnessConfidence maps the average deviation onto [confFloor, 1],
// full at or below good and floor at or above bad.
func StillnessConfidence(std motion.Vec3, good, bad float64) float64 {
	s := (std.X + std.Y + std.Z) / 3
	switch {
	case s <= good:
		return 1.0
	case s >= bad:
		return confFloor
	default:
		t := (s - good) / (bad - good)
		return math.Max(1.0-0.95*t, confFloor)
	}
}

// Save writes r as indented JSON.
func Save(path string, r Result) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a calibration file. The ranges it was taken at must match the
// ranges in use.
func Load(path string, scale imu.Scale) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return Result{}, fmt.Errorf("calibration %s: %w", path, err)
	}
	if r.AccelRange != scale.AccelRange || r.GyroRange != scale.GyroRange {
		return Result{}, fmt.Errorf("calibration %s: taken at ranges %d/%d, device uses %d/%d",
			path, r.AccelRange, r.GyroRange, scale.AccelRange, scale.GyroRange)
	}
	return r, nil
}
