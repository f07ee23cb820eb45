// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package driver defines the platform boundary of the gesture engine:
// motion sensors, microphone metering, haptics, sounds and the reward
// inventory. Adapters live in their own packages.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

var (
	// ErrPermissionDenied is returned when the platform refuses microphone access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSensorUnavailable is returned when a motion sensor cannot be started.
	ErrSensorUnavailable = errors.New("sensor unavailable")
)

// Sensor streams accelerometer and gyroscope samples.
type Sensor interface {
	// Subscribe registers cb for samples at roughly the given interval.
	Subscribe(cb func(motion.Payload), interval time.Duration) error
	// UnsubscribeAll removes every registered callback. Safe to call twice.
	// It may be called from inside cb and must not wait for cb to return.
	UnsubscribeAll()
}

// MeteringConfig configures a metering-only recording.
type MeteringConfig struct {
	Interval time.Duration
}

// Recording is a live microphone capture. Stop may be called from inside
// a driver callback and must not block on it.
type Recording interface {
	Stop() error
}

// Audio acquires the microphone for level metering.
type Audio interface {
	RequestPermission(ctx context.Context) error
	StartMetering(ctx context.Context, cfg MeteringConfig, cb func(dbfs float64)) (Recording, error)
}

// Haptics fires vibration pulses. Intensity is in [0, 1].
type Haptics interface {
	Pulse(intensity float64)
}

// Cue names a sound effect.
type Cue string

const (
	CueShake  Cue = "shake"
	CueFlick  Cue = "flick"
	CueBlow   Cue = "blow"
	CueWin    Cue = "win"
	CueReveal Cue = "reveal"
)

// Sounds plays cues without blocking the caller.
type Sounds interface {
	Play(cue Cue)
}

// Inventory stores collected rewards.
type Inventory interface {
	AddPack(ctx context.Context, n int) (total int, err error)
}

// Nop implements every driver interface and does nothing. Useful when a
// host lacks a device.
type Nop struct{}

func (Nop) Subscribe(func(motion.Payload), time.Duration) error { return nil }
func (Nop) UnsubscribeAll()                                     {}
func (Nop) RequestPermission(context.Context) error             { return nil }
func (Nop) Pulse(float64)                                       {}
func (Nop) Play(Cue)                                            {}
func (Nop) AddPack(context.Context, int) (int, error)           { return 0, nil }

func (Nop) StartMetering(context.Context, MeteringConfig, func(float64)) (Recording, error) {
	return nopRecording{}, nil
}

type nopRecording struct{}

func (nopRecording) Stop() error { return nil }
