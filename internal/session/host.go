// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"sync"

	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/profile"
)

// Host owns the drivers and keeps at most one live session. Entering a new
// session stops the previous one first.
type Host struct {
	deps Deps

	mu        sync.Mutex
	current   *Session
	observers []func(Snapshot)
	sinks     []func(gesture.Event)
}

// NewHost creates a host around a shared set of drivers.
func NewHost(deps Deps) *Host {
	return &Host{deps: deps.withDefaults()}
}

// Observe attaches fn to every session entered from now on.
func (h *Host) Observe(fn func(Snapshot)) {
	h.mu.Lock()
	h.observers = append(h.observers, fn)
	h.mu.Unlock()
}

// OnEvent attaches fn as an event sink to every session entered from now on.
func (h *Host) OnEvent(fn func(gesture.Event)) {
	h.mu.Lock()
	h.sinks = append(h.sinks, fn)
	h.mu.Unlock()
}

// Enter stops the current session, if any, and starts a fresh one.
func (h *Host) Enter(ctx context.Context, p profile.Profile) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.release()

	s := New(p, h.deps)
	for _, fn := range h.observers {
		s.Observe(fn)
	}
	for _, fn := range h.sinks {
		s.OnEvent(fn)
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	h.current = s
	return s, nil
}

// Leave stops the current session. Safe to call with no session.
func (h *Host) Leave() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.release()
}

// release stops the current session and waits for its microphone acquire
// so a late recording cannot be stopped after the next session owns the
// driver. Caller holds mu.
func (h *Host) release() {
	if h.current == nil {
		return
	}
	h.current.Stop()
	h.current.WaitMic()
	h.current = nil
}

// Current returns the live session or nil.
func (h *Host) Current() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil || !h.current.Active() {
		// stopped by its own idle timeout; release still waits on it
		return nil
	}
	return h.current
}
