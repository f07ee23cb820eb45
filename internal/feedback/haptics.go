// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback drives the physical outputs of a session: a vibration
// motor on a GPIO pin and synthesized sound cues.
package feedback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	minPulse = 15 * time.Millisecond
	maxPulse = 120 * time.Millisecond
)

// GPIOHaptics drives a vibration motor through a transistor on one pin.
// Pulse length scales with intensity.
type GPIOHaptics struct {
	pin gpio.PinOut
	log *slog.Logger

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// OpenGPIOHaptics looks up the motor pin by name, e.g. "GPIO17".
func OpenGPIOHaptics(pinName string, logger *slog.Logger) (*GPIOHaptics, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("haptics: periph host init: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("haptics: pin %q not found", pinName)
	}
	return NewGPIOHaptics(pin, logger)
}

// NewGPIOHaptics drives pin low and returns the motor.
func NewGPIOHaptics(pin gpio.PinOut, logger *slog.Logger) (*GPIOHaptics, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("haptics: %s: %w", pin, err)
	}
	return &GPIOHaptics{pin: pin, log: logger}, nil
}

// PulseDuration maps intensity in [0, 1] to motor on-time.
func PulseDuration(intensity float64) time.Duration {
	if intensity <= 0 {
		return 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return minPulse + time.Duration(intensity*float64(maxPulse-minPulse))
}

// Pulse switches the motor on and schedules it off. A newer pulse extends
// an older one instead of being cut short by it.
func (h *GPIOHaptics) Pulse(intensity float64) {
	d := PulseDuration(intensity)
	if d == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	gen := h.gen
	if err := h.pin.Out(gpio.High); err != nil {
		h.log.Debug("haptic pulse failed", "error", err)
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.gen != gen {
			return
		}
		if err := h.pin.Out(gpio.Low); err != nil {
			h.log.Debug("haptic release failed", "error", err)
		}
	})
}

// Close stops any pending pulse and leaves the motor off.
func (h *GPIOHaptics) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
	}
	return h.pin.Out(gpio.Low)
}
