// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session owns one capsule-opening attempt: its classifiers,
// progress, phase, physics body and the driver resources it holds.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/motion"
	"github.com/relabs-tech/gesture_engine/internal/phase"
	"github.com/relabs-tech/gesture_engine/internal/physics"
	"github.com/relabs-tech/gesture_engine/internal/profile"
	"github.com/relabs-tech/gesture_engine/internal/progress"
)

var (
	// ErrClosed is returned by operations on a stopped session.
	ErrClosed = errors.New("session closed")
	// ErrStarted is returned when Start is called twice.
	ErrStarted = errors.New("session already started")
)

const inventoryTimeout = 5 * time.Second

// Deps are the drivers a session talks to. Nil drivers are replaced by
// driver.Nop.
type Deps struct {
	Sensors   driver.Sensor
	Audio     driver.Audio
	Haptics   driver.Haptics
	Sounds    driver.Sounds
	Inventory driver.Inventory
	Logger    *slog.Logger
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Sensors == nil {
		d.Sensors = driver.Nop{}
	}
	if d.Audio == nil {
		d.Audio = driver.Nop{}
	}
	if d.Haptics == nil {
		d.Haptics = driver.Nop{}
	}
	if d.Sounds == nil {
		d.Sounds = driver.Nop{}
	}
	if d.Inventory == nil {
		d.Inventory = driver.Nop{}
	}
	if d.Logger == nil {
		d.Logger = log.Component("session")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Snapshot is the read-only view handed to the render layer.
type Snapshot struct {
	SessionID     uuid.UUID    `json:"session_id"`
	Mode          profile.Mode `json:"mode"`
	Phase         phase.Phase  `json:"phase"`
	Progress      int          `json:"progress"`
	Body          physics.Body `json:"body"`
	BlowIntensity float64      `json:"blow_intensity"`
}

// Session is one entry into the opening screen. It is single-use: Start
// once, Stop once, then discard.
type Session struct {
	id      uuid.UUID
	profile profile.Profile
	deps    Deps
	log     *slog.Logger

	active   atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	loops    sync.WaitGroup // decay, physics and publish goroutines
	bg       sync.WaitGroup // inventory writes
	mic      sync.WaitGroup // microphone acquisition

	// mu serializes driver callbacks, decay ticks, the ready timer and
	// external commands.
	mu            sync.Mutex
	set           *gesture.Set
	acc           *progress.Accumulator
	machine       *phase.Machine
	listening     bool
	recording     driver.Recording
	lastBlowSound time.Time
	stopReady     func() bool
	eventSinks    []func(gesture.Event)

	runner        *physics.Runner
	blowIntensity atomic.Uint64 // float64 bits

	obsMu         sync.Mutex
	observers     []func(Snapshot)
	lastPublished Snapshot
	published     bool

	afterFunc func(time.Duration, func()) func() bool
}

// New creates a session for the given profile. Nothing is acquired until
// Start.
func New(p profile.Profile, deps Deps) *Session {
	deps = deps.withDefaults()
	id := uuid.New()
	s := &Session{
		id:      id,
		profile: p,
		deps:    deps,
		log:     deps.Logger.With("session_id", id.String(), "mode", string(p.Mode)),
		set:     p.NewSet(),
		acc:     progress.New(p.Progress, deps.Now()),
		machine: phase.NewMachine(),
		runner:  physics.NewRunner(p.Physics),
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
	s.machine.OnTransition(func(from, to phase.Phase) {
		s.log.Info("phase transition", "from", from.String(), "to", to.String())
	})
	return s
}

func (s *Session) ID() uuid.UUID            { return s.id }
func (s *Session) Profile() profile.Profile { return s.profile }
func (s *Session) Phase() phase.Phase       { return s.machine.Current() }
func (s *Session) Active() bool             { return s.active.Load() }

// Progress returns the raw accumulator value.
func (s *Session) Progress() float64 { return s.acc.Value() }

// Start subscribes to the drivers and launches the decay, physics and
// snapshot goroutines. Listener registration errors are logged and the
// affected classifiers disabled; Start itself only fails on misuse.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.active.Store(true)

	s.enter(ctx)

	s.loops.Add(3)
	go s.decayLoop(ctx)
	go func() {
		defer s.loops.Done()
		s.runner.Run(ctx)
	}()
	go s.publishLoop(ctx)

	s.log.Info("session started", "classifiers", s.set.Active())
	return nil
}

func (s *Session) enter(ctx context.Context) {
	s.mu.Lock()
	s.listening = true
	s.mu.Unlock()

	if err := s.deps.Sensors.Subscribe(s.HandleMotion, s.profile.SampleInterval); err != nil {
		s.mu.Lock()
		s.set.DisableInput(gesture.InputMotion)
		s.mu.Unlock()
		if errors.Is(err, driver.ErrSensorUnavailable) {
			s.log.Warn("motion sensor unavailable, motion gestures disabled", "error", err)
		} else {
			s.log.Error("motion listener registration failed", "error", err)
		}
	}

	if s.profile.UsesAudio() {
		s.mic.Add(1)
		go s.acquireMic(ctx)
	}
}

// acquireMic requests permission and starts metering. If the session
// left while the acquire was in flight, the new recording is stopped
// immediately instead of being stored.
func (s *Session) acquireMic(ctx context.Context) {
	defer s.mic.Done()

	if err := s.deps.Audio.RequestPermission(ctx); err != nil {
		s.disableAudio(err)
		return
	}
	if !s.active.Load() {
		return
	}

	cfg := driver.MeteringConfig{Interval: s.profile.MeteringInterval}
	rec, err := s.deps.Audio.StartMetering(ctx, cfg, s.HandleMetering)
	if err != nil {
		s.disableAudio(err)
		return
	}

	s.mu.Lock()
	if !s.active.Load() || !s.listening {
		s.mu.Unlock()
		s.log.Debug("session left during microphone acquire, releasing")
		stopRecording(s.log, rec)
		return
	}
	s.recording = rec
	s.mu.Unlock()
	s.log.Debug("microphone metering started")
}

func (s *Session) disableAudio(err error) {
	s.mu.Lock()
	s.set.DisableInput(gesture.InputAudio)
	s.mu.Unlock()
	if errors.Is(err, driver.ErrPermissionDenied) {
		s.log.Warn("microphone permission denied, blow disabled")
		return
	}
	s.log.Error("microphone unavailable, blow disabled", "error", err)
}

// Stop tears down listeners, releases the microphone and stops the
// session goroutines. It is idempotent and safe from any goroutine except
// the session's own loops.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.active.Store(false)

		s.mu.Lock()
		s.teardown()
		if s.stopReady != nil {
			s.stopReady()
			s.stopReady = nil
		}
		s.mu.Unlock()

		if s.cancel != nil {
			s.cancel()
		}
		s.log.Info("session stopped", "phase", s.machine.Current().String(), "progress", s.acc.Percent())
	})
	s.loops.Wait()
}

// Wait blocks until background work (mic acquisition, inventory writes)
// has finished.
func (s *Session) Wait() {
	s.mic.Wait()
	s.bg.Wait()
}

// WaitMic blocks until an in-flight microphone acquire has either stored
// its recording or released it. After Stop, this guarantees the session
// no longer touches the audio driver.
func (s *Session) WaitMic() {
	s.mic.Wait()
}

// teardown unsubscribes every listener and releases the microphone.
// Caller holds mu.
func (s *Session) teardown() {
	if !s.listening {
		return
	}
	s.listening = false
	s.deps.Sensors.UnsubscribeAll()
	if s.recording != nil {
		stopRecording(s.log, s.recording)
		s.recording = nil
	}
	s.runner.CutFeed()
}

func stopRecording(l *slog.Logger, rec driver.Recording) {
	if err := rec.Stop(); err != nil {
		l.Debug("recording stop failed", "error", err)
	}
}

// HandleMotion is the sensor driver callback.
func (s *Session) HandleMotion(p motion.Payload) {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() || !s.listening {
		return
	}

	r := motion.Ingest(s.deps.Now(), p)
	s.runner.SetAcceleration(r.Accel.X, r.Accel.Y)
	s.handleReading(r)
}

// HandleMetering is the microphone driver callback. Levels are dBFS.
func (s *Session) HandleMetering(dbfs float64) {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() || !s.listening {
		return
	}

	s.handleReading(motion.Metering(s.deps.Now(), dbfs))
}

// handleReading runs the classifiers and applies accepted events.
// Caller holds mu.
func (s *Session) handleReading(r motion.Reading) {
	if !s.machine.Current().Accepting() {
		return
	}
	events := s.set.Evaluate(r)
	if r.HasAudio {
		s.blowIntensity.Store(math.Float64bits(s.set.BlowIntensity()))
	}
	for _, ev := range events {
		if s.apply(ev) {
			return
		}
	}
}

// apply feeds one accepted event to the progress meter. It reports whether
// the event completed the session.
func (s *Session) apply(ev gesture.Event) bool {
	if s.machine.Interact() {
		s.log.Debug("first interaction", "kind", string(ev.Kind))
	}
	value, done := s.acc.Increment(s.profile.Increments[ev.Kind], ev.FiredAt)
	s.log.Debug("gesture accepted", "kind", string(ev.Kind), "intensity", ev.Intensity, "progress", value)

	s.feedback(ev)
	for _, sink := range s.eventSinks {
		sink(ev)
	}

	if done {
		s.complete()
	}
	return done
}

func (s *Session) feedback(ev gesture.Event) {
	switch ev.Kind {
	case gesture.KindBlow:
		if ev.FiredAt.Sub(s.lastBlowSound) > s.profile.BlowSoundInterval {
			s.deps.Sounds.Play(driver.CueBlow)
			s.lastBlowSound = ev.FiredAt
		}
	case gesture.KindShake:
		s.deps.Sounds.Play(driver.CueShake)
	case gesture.KindFlick:
		s.deps.Sounds.Play(driver.CueFlick)
	}
	s.deps.Haptics.Pulse(s.profile.Haptics[ev.Kind])
}

// complete handles the one-shot completion signal. Listeners are torn down
// before the win cue plays. Caller holds mu.
func (s *Session) complete() {
	s.teardown()

	if err := s.machine.Complete(); err != nil {
		s.log.Error("completion in unexpected phase", "error", err)
		return
	}
	s.deps.Sounds.Play(driver.CueWin)
	s.deps.Haptics.Pulse(1)

	s.stopReady = s.afterFunc(s.profile.ReadyDelay, s.beginOpening)
	s.dispatchPack()
}

func (s *Session) beginOpening() {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return
	}
	s.stopReady = nil
	if err := s.machine.BeginOpening(); err != nil {
		s.log.Debug("ready timer fired out of phase", "error", err)
	}
}

// dispatchPack records the reward off the hot path.
func (s *Session) dispatchPack() {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), inventoryTimeout)
		defer cancel()

		total, err := s.deps.Inventory.AddPack(ctx, 1)
		if err != nil {
			s.log.Error("failed to record pack", "error", err)
			return
		}
		s.log.Info("pack recorded", "total", total)
	}()
}

// AnimationComplete is called by the render layer when the reveal
// animation has finished. It moves Opening to Revealed.
func (s *Session) AnimationComplete() error {
	if !s.active.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.Reveal(); err != nil {
		return err
	}
	s.deps.Sounds.Play(driver.CueReveal)
	s.deps.Haptics.Pulse(1)
	return nil
}

// Collect moves Revealed to Complete once the player takes the reward.
func (s *Session) Collect() error {
	if !s.active.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Finish()
}

// OnEvent registers a sink for accepted gesture events. Sinks run on the
// callback path and must not block.
func (s *Session) OnEvent(fn func(gesture.Event)) {
	s.mu.Lock()
	s.eventSinks = append(s.eventSinks, fn)
	s.mu.Unlock()
}

// Observe registers a snapshot observer. Observers are called from the
// publish goroutine, only when the snapshot changed.
func (s *Session) Observe(fn func(Snapshot)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// Snapshot returns the current view without taking the callback lock.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:     s.id,
		Mode:          s.profile.Mode,
		Phase:         s.machine.Current(),
		Progress:      s.acc.Percent(),
		Body:          s.runner.Body(),
		BlowIntensity: math.Float64frombits(s.blowIntensity.Load()),
	}
}

func (s *Session) publishLoop(ctx context.Context) {
	defer s.loops.Done()

	interval := s.profile.SnapshotInterval
	if interval <= 0 {
		interval = profile.SnapshotInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish()
		}
	}
}

// publish notifies observers if the snapshot differs from the last one.
func (s *Session) publish() {
	snap := s.Snapshot()

	s.obsMu.Lock()
	if s.published && snap == s.lastPublished {
		s.obsMu.Unlock()
		return
	}
	s.lastPublished = snap
	s.published = true
	observers := append([]func(Snapshot){}, s.observers...)
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (s *Session) decayLoop(ctx context.Context) {
	defer s.loops.Done()

	interval := s.profile.Progress.DecayInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.decayTick(s.deps.Now()) {
				// Stop waits on this loop, so it must not run here
				go s.Stop()
				return
			}
		}
	}
}

// decayTick applies idle decay while input is still accepted. It reports
// whether the opt-in idle timeout expired.
func (s *Session) decayTick(now time.Time) (expired bool) {
	if !s.active.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.machine.Current().Accepting() {
		return false
	}
	if value, decayed := s.acc.DecayTick(now); decayed {
		s.log.Debug("progress decayed", "progress", value)
	}

	if timeout := s.profile.IdleTimeout; timeout > 0 && now.Sub(s.acc.LastInteraction()) > timeout {
		s.log.Info("idle timeout, leaving session", "idle", now.Sub(s.acc.LastInteraction()).String())
		return true
	}
	return false
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s, %s, %d%%)", s.id, s.profile.Mode, s.machine.Current(), s.acc.Percent())
}
