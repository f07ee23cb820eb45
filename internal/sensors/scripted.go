// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// Action is one synthetic player behaviour.
type Action string

const (
	ActionIdle  Action = "idle"
	ActionShake Action = "shake"
	ActionFlick Action = "flick"
	ActionBlow  Action = "blow"
)

// Step plays one action for a duration.
type Step struct {
	Action   Action
	Duration time.Duration
}

// Script is a timeline of steps. It repeats when Loop is set, otherwise
// it idles after the last step.
type Script struct {
	Steps []Step
	Loop  bool
}

// ParseScript reads "shake:2s,idle:500ms,blow:3s".
func ParseScript(s string) (Script, error) {
	var sc Script
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dur, ok := strings.Cut(part, ":")
		if !ok {
			return Script{}, fmt.Errorf("script step %q: expected action:duration", part)
		}
		a := Action(strings.ToLower(strings.TrimSpace(name)))
		switch a {
		case ActionIdle, ActionShake, ActionFlick, ActionBlow:
		default:
			return Script{}, fmt.Errorf("script step %q: unknown action %q", part, name)
		}
		d, err := time.ParseDuration(strings.TrimSpace(dur))
		if err != nil || d <= 0 {
			return Script{}, fmt.Errorf("script step %q: invalid duration %q", part, dur)
		}
		sc.Steps = append(sc.Steps, Step{Action: a, Duration: d})
	}
	if len(sc.Steps) == 0 {
		return Script{}, fmt.Errorf("empty script")
	}
	return sc, nil
}

// Total is the length of one pass through the script.
func (s Script) Total() time.Duration {
	var d time.Duration
	for _, st := range s.Steps {
		d += st.Duration
	}
	return d
}

// At returns the action playing at elapsed and how far into it we are.
func (s Script) At(elapsed time.Duration) (Action, time.Duration) {
	total := s.Total()
	if total <= 0 || elapsed < 0 {
		return ActionIdle, 0
	}
	if elapsed >= total {
		if !s.Loop {
			return ActionIdle, 0
		}
		elapsed %= total
	}
	for _, st := range s.Steps {
		if elapsed < st.Duration {
			return st.Action, elapsed
		}
		elapsed -= st.Duration
	}
	return ActionIdle, 0
}

const (
	shakeAmplitude = 35.0 // m/s², above the challenge force
	shakeHz        = 6.0
	flickPeriod    = 400 * time.Millisecond
	flickSwing     = 80 * time.Millisecond
	flickSpin      = 6.0  // rad/s
	flickForce     = 14.0 // m/s²
	blowLevel      = -12.0
	quietLevel     = -60.0
)

// MotionAt synthesizes the motion sample for an action.
func MotionAt(a Action, into time.Duration) motion.Payload {
	t := into.Seconds()
	var acc motion.Vec3
	var rot motion.RotationRate

	switch a {
	case ActionShake:
		acc.X = shakeAmplitude * math.Sin(2*math.Pi*shakeHz*t)
		acc.Y = 0.3 * shakeAmplitude * math.Cos(2*math.Pi*shakeHz*t)
		rot.Gamma = 1.5 * math.Sin(2*math.Pi*shakeHz*t)
	case ActionFlick:
		// one-way swing each period, then a slow positive settle
		if into%flickPeriod < flickSwing {
			acc.X = flickForce
			rot.Gamma = flickSpin
		} else {
			rot.Gamma = 0.5
		}
	default:
		acc.X = 0.3 * math.Sin(t)
		acc.Z = 0.2 * math.Cos(t*0.7)
		rot.Beta = 0.1 * math.Sin(t*1.3)
	}
	return motion.Payload{Acceleration: &acc, RotationRate: &rot}
}

// LevelAt synthesizes the microphone level for an action.
func LevelAt(a Action, into time.Duration) float64 {
	if a == ActionBlow {
		return blowLevel + math.Sin(into.Seconds()*3)
	}
	return quietLevel
}

// Scripted plays a Script through the sensor and audio driver interfaces.
type Scripted struct {
	script Script
	start  time.Time
	now    func() time.Time

	mu     sync.Mutex
	motion *ticking
	mic    *ticking
}

// NewScripted starts the script clock now.
func NewScripted(script Script) *Scripted {
	return &Scripted{script: script, start: time.Now(), now: time.Now}
}

func (s *Scripted) elapsed() time.Duration { return s.now().Sub(s.start) }

func (s *Scripted) Subscribe(cb func(motion.Payload), interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.motion != nil {
		s.motion.stop()
	}
	s.motion = startTicking(interval, func() {
		a, into := s.script.At(s.elapsed())
		cb(MotionAt(a, into))
	})
	return nil
}

func (s *Scripted) UnsubscribeAll() {
	s.mu.Lock()
	t := s.motion
	s.motion = nil
	s.mu.Unlock()
	if t != nil {
		t.stop()
	}
}

func (s *Scripted) RequestPermission(ctx context.Context) error { return ctx.Err() }

func (s *Scripted) StartMetering(ctx context.Context, cfg driver.MeteringConfig, cb func(float64)) (driver.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mic != nil {
		s.mic.stop()
	}
	t := startTicking(interval, func() {
		a, into := s.script.At(s.elapsed())
		cb(LevelAt(a, into))
	})
	s.mic = t
	return t, nil
}

type ticking struct {
	cancel context.CancelFunc
}

func startTicking(interval time.Duration, fn func()) *ticking {
	ctx, cancel := context.WithCancel(context.Background())
	t := &ticking{cancel: cancel}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() == nil {
					fn()
				}
			}
		}
	}()
	return t
}

func (t *ticking) stop() { t.cancel() }

// Stop implements driver.Recording.
func (t *ticking) Stop() error {
	t.stop()
	return nil
}
