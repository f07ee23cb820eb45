// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package profile holds the named threshold sets for each game mode.
package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/motion"
	"github.com/relabs-tech/gesture_engine/internal/physics"
	"github.com/relabs-tech/gesture_engine/internal/progress"
)

// Mode selects which gestures open the capsule and how hard they are.
type Mode string

const (
	ModeShake          Mode = "shake"
	ModeBlow           Mode = "blow"
	ModeGrab           Mode = "grab"
	ModeBoth           Mode = "both"
	ModeShakeChallenge Mode = "shake-challenge"
	ModeSlapChallenge  Mode = "slap-challenge"
	ModeBlowChallenge  Mode = "blow-challenge"
)

// Thresholds shared across modes.
const (
	ShakeForce          = 15.0  // m/s²
	ShakeChallengeForce = 30.0  // m/s²
	FlickRotationMin    = 4.0   // rad/s
	FlickMovementMin    = 12.0  // m/s²
	MeteringMin         = -25.0 // dBFS
	MeteringChallenge   = -20.0 // dBFS
	MeteringFloor       = -50.0 // dBFS
	ChallengeSustain    = 3     // loud frames before a blow challenge fires

	ShakeIncrement = 15.0
	BlowIncrement  = 8.0
	FlickIncrement = 25.0

	FastSampleInterval    = 16 * time.Millisecond
	DefaultSampleInterval = 50 * time.Millisecond
	MeteringInterval      = 100 * time.Millisecond
	ReadyDelay            = 500 * time.Millisecond
	BlowSoundInterval     = 800 * time.Millisecond
	SnapshotInterval      = 50 * time.Millisecond
)

// Profile is the full parameter set for one session.
type Profile struct {
	Mode             Mode
	Kinds            []gesture.Kind
	SampleInterval   time.Duration
	MeteringInterval time.Duration

	Shake gesture.ShakeParams
	Flick gesture.FlickParams
	Blow  gesture.BlowParams

	// Increments is the progress added per accepted event of each kind.
	Increments map[gesture.Kind]float64
	// Haptics is the pulse intensity played per accepted event of each kind.
	Haptics map[gesture.Kind]float64

	Progress progress.Params
	Physics  physics.Params

	ReadyDelay        time.Duration
	BlowSoundInterval time.Duration
	SnapshotInterval  time.Duration
	IdleTimeout       time.Duration // 0 disables
}

// Modes lists every known mode, sorted.
func Modes() []Mode {
	modes := make([]Mode, 0, len(catalogue))
	for m := range catalogue {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalogue[m]; !ok {
		return "", fmt.Errorf("unknown mode %q (valid: %v)", s, Modes())
	}
	return m, nil
}

// ForMode returns the threshold set for m.
func ForMode(m Mode) (Profile, error) {
	tweak, ok := catalogue[m]
	if !ok {
		return Profile{}, fmt.Errorf("unknown mode %q", m)
	}
	p := base(m)
	tweak(&p)
	return p, nil
}

func base(m Mode) Profile {
	return Profile{
		Mode:             m,
		SampleInterval:   DefaultSampleInterval,
		MeteringInterval: MeteringInterval,
		Shake: gesture.ShakeParams{
			Force:    ShakeForce,
			Cooldown: 500 * time.Millisecond,
		},
		Flick: gesture.FlickParams{
			RotationMin: FlickRotationMin,
			MovementMin: FlickMovementMin,
			Rejection:   2.0,
			Window:      200 * time.Millisecond,
			Cooldown:    500 * time.Millisecond,
			Axis:        motion.AxisGamma,
		},
		Blow: gesture.BlowParams{
			MeteringMin:   MeteringMin,
			MeteringFloor: MeteringFloor,
			Cooldown:      100 * time.Millisecond,
		},
		Increments: map[gesture.Kind]float64{
			gesture.KindShake: ShakeIncrement,
			gesture.KindFlick: FlickIncrement,
			gesture.KindBlow:  BlowIncrement,
		},
		Haptics: map[gesture.Kind]float64{
			gesture.KindShake: 0.6,
			gesture.KindFlick: 1.0,
			gesture.KindBlow:  0.3,
		},
		Progress:          progress.DefaultParams(),
		Physics:           physics.DefaultParams(),
		ReadyDelay:        ReadyDelay,
		BlowSoundInterval: BlowSoundInterval,
		SnapshotInterval:  SnapshotInterval,
	}
}

var catalogue = map[Mode]func(*Profile){
	ModeShake: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindShake}
	},
	ModeBlow: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindBlow}
	},
	ModeGrab: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindFlick}
		p.SampleInterval = FastSampleInterval
	},
	ModeBoth: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindShake, gesture.KindBlow}
	},
	ModeShakeChallenge: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindShake}
		p.Shake.Force = ShakeChallengeForce
		p.Shake.Cooldown = time.Second
		p.Increments[gesture.KindShake] = 100
	},
	ModeSlapChallenge: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindFlick}
		p.SampleInterval = FastSampleInterval
		p.Flick.Cooldown = time.Second
		p.Increments[gesture.KindFlick] = 100
	},
	ModeBlowChallenge: func(p *Profile) {
		p.Kinds = []gesture.Kind{gesture.KindBlow}
		p.Blow.MeteringMin = MeteringChallenge
		p.Blow.SustainFrames = ChallengeSustain
		p.Blow.Cooldown = time.Second
		p.Increments[gesture.KindBlow] = 100
	},
}

// Has reports whether the profile enables kind.
func (p Profile) Has(kind gesture.Kind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NewSet builds fresh classifiers for the profile's enabled kinds.
func (p Profile) NewSet() *gesture.Set {
	var cs []gesture.Classifier
	for _, k := range p.Kinds {
		switch k {
		case gesture.KindShake:
			cs = append(cs, gesture.NewShake(p.Shake))
		case gesture.KindFlick:
			cs = append(cs, gesture.NewFlick(p.Flick))
		case gesture.KindBlow:
			cs = append(cs, gesture.NewBlow(p.Blow))
		}
	}
	return gesture.NewSet(cs...)
}

// UsesAudio reports whether the session must acquire the microphone.
func (p Profile) UsesAudio() bool {
	return p.Has(gesture.KindBlow)
}
