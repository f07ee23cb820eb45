// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package profile

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relabs-tech/gesture_engine/internal/gesture"
)

// Overrides is the optional TOML tuning file. Tables are keyed by mode:
//
//	[mode.shake]
//	shake-force = 18.0
//	decay-delay-ms = 3000
type Overrides struct {
	Modes map[string]ModeOverride `toml:"mode"`
}

// ModeOverride maps per-mode settings. Unset fields keep the built-in value.
type ModeOverride struct {
	ShakeForce      *float64 `toml:"shake-force"`
	ShakeCooldownMS *int     `toml:"shake-cooldown-ms"`

	RotationMin     *float64 `toml:"rotation-min"`
	MovementMin     *float64 `toml:"movement-min"`
	Rejection       *float64 `toml:"rejection"`
	WindowMS        *int     `toml:"window-ms"`
	FlickCooldownMS *int     `toml:"flick-cooldown-ms"`

	MeteringMin    *float64 `toml:"metering-min"`
	MeteringFloor  *float64 `toml:"metering-floor"`
	Smoothing      *float64 `toml:"smoothing"`
	SustainFrames  *int     `toml:"sustain-frames"`
	BlowCooldownMS *int     `toml:"blow-cooldown-ms"`

	ShakeIncrement *float64 `toml:"shake-increment"`
	FlickIncrement *float64 `toml:"flick-increment"`
	BlowIncrement  *float64 `toml:"blow-increment"`

	DecayRate        *float64 `toml:"decay-rate"`
	DecayDelayMS     *int     `toml:"decay-delay-ms"`
	ReadyDelayMS     *int     `toml:"ready-delay-ms"`
	SampleIntervalMS *int     `toml:"sample-interval-ms"`
	IdleTimeoutMS    *int     `toml:"idle-timeout-ms"`
}

// LoadOverrides reads a TOML override file. A missing file is not an error.
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return Overrides{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Overrides{}, nil
		}
		return Overrides{}, fmt.Errorf("failed to stat profile overrides: %w", err)
	}
	var o Overrides
	md, err := toml.DecodeFile(path, &o)
	if err != nil {
		return Overrides{}, fmt.Errorf("failed to decode profile overrides: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Overrides{}, fmt.Errorf("unknown profile override keys: %v", undecoded)
	}
	for name := range o.Modes {
		if _, err := ParseMode(name); err != nil {
			return Overrides{}, fmt.Errorf("profile overrides: %w", err)
		}
	}
	return o, nil
}

// Apply returns p with the overrides for its mode merged in.
func (o Overrides) Apply(p Profile) Profile {
	mo, ok := o.Modes[string(p.Mode)]
	if !ok {
		return p
	}

	increments := cloneMap(p.Increments)

	setF(&p.Shake.Force, mo.ShakeForce)
	setMS(&p.Shake.Cooldown, mo.ShakeCooldownMS)

	setF(&p.Flick.RotationMin, mo.RotationMin)
	setF(&p.Flick.MovementMin, mo.MovementMin)
	setF(&p.Flick.Rejection, mo.Rejection)
	setMS(&p.Flick.Window, mo.WindowMS)
	setMS(&p.Flick.Cooldown, mo.FlickCooldownMS)

	setF(&p.Blow.MeteringMin, mo.MeteringMin)
	setF(&p.Blow.MeteringFloor, mo.MeteringFloor)
	setF(&p.Blow.Smoothing, mo.Smoothing)
	if mo.SustainFrames != nil {
		p.Blow.SustainFrames = *mo.SustainFrames
	}
	setMS(&p.Blow.Cooldown, mo.BlowCooldownMS)

	if mo.ShakeIncrement != nil {
		increments[gesture.KindShake] = *mo.ShakeIncrement
	}
	if mo.FlickIncrement != nil {
		increments[gesture.KindFlick] = *mo.FlickIncrement
	}
	if mo.BlowIncrement != nil {
		increments[gesture.KindBlow] = *mo.BlowIncrement
	}
	p.Increments = increments

	setF(&p.Progress.DecayRate, mo.DecayRate)
	setMS(&p.Progress.DecayDelay, mo.DecayDelayMS)
	setMS(&p.ReadyDelay, mo.ReadyDelayMS)
	setMS(&p.SampleInterval, mo.SampleIntervalMS)
	setMS(&p.IdleTimeout, mo.IdleTimeoutMS)
	return p
}

func setF(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setMS(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Millisecond
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
