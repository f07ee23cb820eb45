// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/relabs-tech/gesture_engine/internal/driver"
)

type note struct {
	freq     float64 // Hz, 0 for noise
	duration time.Duration
}

type tone struct {
	notes   []note
	volume  float64 // linear, 0..1
	release time.Duration
}

var tones = map[driver.Cue]tone{
	driver.CueShake:  {notes: []note{{0, 90 * time.Millisecond}}, volume: 0.35, release: 60 * time.Millisecond},
	driver.CueFlick:  {notes: []note{{1320, 60 * time.Millisecond}}, volume: 0.5, release: 40 * time.Millisecond},
	driver.CueBlow:   {notes: []note{{0, 250 * time.Millisecond}}, volume: 0.2, release: 200 * time.Millisecond},
	driver.CueWin:    {notes: []note{{523.25, 120 * time.Millisecond}, {659.25, 120 * time.Millisecond}, {783.99, 240 * time.Millisecond}}, volume: 0.6, release: 80 * time.Millisecond},
	driver.CueReveal: {notes: []note{{880, 80 * time.Millisecond}, {1760, 200 * time.Millisecond}}, volume: 0.5, release: 150 * time.Millisecond},
}

// Streamer builds a fresh finite stream for cue, or nil for an unknown cue.
func Streamer(cue driver.Cue, rate beep.SampleRate) beep.Streamer {
	t, ok := tones[cue]
	if !ok {
		return nil
	}
	parts := make([]beep.Streamer, 0, len(t.notes))
	for _, n := range t.notes {
		parts = append(parts, &fade{
			src:     &oscillator{freq: n.freq, rate: rate, seed: uint32(n.duration)},
			total:   rate.N(n.duration),
			release: rate.N(t.release),
		})
	}
	return &effects.Volume{Streamer: beep.Seq(parts...), Base: 2, Volume: math.Log2(t.volume)}
}

// oscillator is an endless sine, or white noise when freq is 0.
type oscillator struct {
	freq  float64
	rate  beep.SampleRate
	phase float64
	seed  uint32
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		var v float64
		if o.freq == 0 {
			// xorshift keeps noise deterministic per cue
			o.seed ^= o.seed << 13
			o.seed ^= o.seed >> 17
			o.seed ^= o.seed << 5
			v = float64(o.seed)/math.MaxUint32*2 - 1
		} else {
			v = math.Sin(2 * math.Pi * o.phase)
			o.phase += o.freq / float64(o.rate)
			o.phase -= math.Floor(o.phase)
		}
		samples[i][0], samples[i][1] = v, v
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// fade takes total samples from src with a linear release tail.
type fade struct {
	src     beep.Streamer
	total   int
	release int
	pos     int
}

func (f *fade) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= f.total {
		return 0, false
	}
	if rem := f.total - f.pos; len(samples) > rem {
		samples = samples[:rem]
	}
	n, _ := f.src.Stream(samples)
	for i := 0; i < n; i++ {
		if left := f.total - f.pos; left < f.release {
			g := float64(left) / float64(f.release)
			samples[i][0] *= g
			samples[i][1] *= g
		}
		f.pos++
	}
	return n, true
}

func (f *fade) Err() error { return nil }

// SoundPlayer mixes cues onto the default audio device.
type SoundPlayer struct {
	rate  beep.SampleRate
	mixer *beep.Mixer

	mu          sync.Mutex
	initialized bool
}

func NewSoundPlayer(sampleRate int) *SoundPlayer {
	return &SoundPlayer{rate: beep.SampleRate(sampleRate), mixer: &beep.Mixer{}}
}

// Init opens the speaker and starts the mixer.
func (p *SoundPlayer) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if err := speaker.Init(p.rate, p.rate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Play queues cue on the mixer and returns at once. Before Init it is a
// no-op.
func (p *SoundPlayer) Play(cue driver.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	s := Streamer(cue, p.rate)
	if s == nil {
		return
	}
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// Close silences everything still playing.
func (p *SoundPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Clear()
	p.initialized = false
}
