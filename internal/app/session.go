// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/display"
	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/mqttbridge"
	"github.com/relabs-tech/gesture_engine/internal/phase"
	"github.com/relabs-tech/gesture_engine/internal/profile"
	"github.com/relabs-tech/gesture_engine/internal/session"
	"github.com/relabs-tech/gesture_engine/internal/web"
)

// SessionOptions are command-line overrides for RunSession.
type SessionOptions struct {
	Mode   string // replaces GESTURE_MODE when set
	Script string // scripted source, see sensors.ParseScript
	Static string // directory served at / by the web server
	NoWeb  bool
}

// RunSession hosts gesture sessions until SIGINT or SIGTERM. The first
// session is entered in the configured mode; the web UI can switch modes.
func RunSession(opts SessionOptions) error {
	cfg := config.Get()
	log.Init(cfg.LogLevel)
	logger := log.Component("app")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := cfg.GestureMode
	if opts.Mode != "" {
		m, err := profile.ParseMode(opts.Mode)
		if err != nil {
			return err
		}
		mode = m
	}
	resolve, err := profiles(cfg)
	if err != nil {
		return err
	}

	r, err := buildRig(ctx, cfg, opts.Script)
	if err != nil {
		return err
	}
	defer r.Close()

	var screen *display.Screen
	if cfg.DisplayEnabled {
		s, bus, err := display.Open(cfg.DisplayI2CBus, log.Component("display"))
		if err != nil {
			logger.Warn("display disabled", "error", err)
		} else {
			screen = s
			r.closers = append(r.closers, bus)
			if n, err := r.store.Count(ctx); err == nil {
				screen.SetPacks(n)
			}
			r.deps.Inventory = packCounter{Inventory: r.store, onTotal: screen.SetPacks}
			go screen.Run(ctx, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond)
		}
	}

	host := session.NewHost(r.deps)
	if screen != nil {
		host.Observe(screen.Update)
	}
	if r.client != nil {
		pub := mqttbridge.NewPublisher(r.client, cfg.TopicEvents, cfg.TopicSnapshot, log.Component("publisher"))
		host.Observe(pub.PublishSnapshot)
		host.OnEvent(pub.PublishEvent)
	}
	defer host.Leave()

	errCh := make(chan error, 1)
	if !opts.NoWeb {
		srv := web.NewServer(host, r.store, resolve, opts.Static, log.Component("web"))
		go func() {
			errCh <- srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.WebServerPort))
		}()
	}

	p, err := resolve(mode)
	if err != nil {
		return err
	}
	if _, err := host.Enter(ctx, p); err != nil {
		return fmt.Errorf("enter %s: %w", mode, err)
	}
	logger.Info("session host running", "mode", mode, "sensors", cfg.SensorSource, "audio", cfg.AudioSource)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	}
}

// RunSimulate plays a scripted gesture sequence through one session and
// stands in for the render layer: it acknowledges the reveal animation and
// collects the reward. It returns once the session completes.
func RunSimulate(mode, script string, animation time.Duration) error {
	base := config.Get()
	log.Init(base.LogLevel)
	logger := log.Component("simulate")

	cfg := *base
	cfg.SensorSource = config.SourceScripted
	cfg.AudioSource = config.SourceScripted
	cfg.MQTTBroker = ""

	m := cfg.GestureMode
	if mode != "" {
		var err error
		if m, err = profile.ParseMode(mode); err != nil {
			return err
		}
	}
	resolve, err := profiles(&cfg)
	if err != nil {
		return err
	}
	p, err := resolve(m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := buildRig(ctx, &cfg, script)
	if err != nil {
		return err
	}
	defer r.Close()

	host := session.NewHost(r.deps)
	defer host.Leave()

	// observers run on the session's publish loop; they must not go through
	// the host, whose lock is held while a session stops
	var cur atomic.Pointer[session.Session]
	done := make(chan struct{})
	var last phase.Phase
	host.OnEvent(func(ev gesture.Event) {
		logger.Info("gesture", "kind", ev.Kind, "intensity", fmt.Sprintf("%.2f", ev.Intensity))
	})
	host.Observe(func(snap session.Snapshot) {
		if snap.Phase == last {
			return
		}
		last = snap.Phase
		logger.Info("phase", "phase", snap.Phase, "progress", snap.Progress)
		sess := cur.Load()
		if sess == nil {
			return
		}
		switch snap.Phase {
		case phase.Opening:
			time.AfterFunc(animation, func() { _ = sess.AnimationComplete() })
		case phase.Revealed:
			_ = sess.Collect()
		case phase.Complete:
			close(done)
		}
	})

	sess, err := host.Enter(ctx, p)
	if err != nil {
		return err
	}
	cur.Store(sess)
	logger.Info("simulating", "mode", m, "script", script)

	select {
	case <-ctx.Done():
		return nil
	case <-done:
	}
	n, err := r.store.Count(context.Background())
	if err != nil {
		return err
	}
	logger.Info("session complete", "packs", n)
	return nil
}
