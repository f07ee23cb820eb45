// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders the session state on a 128x64 SSD1306 OLED.
package display

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_engine/internal/phase"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

const (
	width  = 128
	height = 64

	barTop    = 46
	barBottom = 58
)

// Panel is the part of a display device the screen draws on.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Screen keeps the latest snapshot and redraws the panel when it changes.
type Screen struct {
	panel Panel
	log   *slog.Logger

	mu      sync.Mutex
	latest  session.Snapshot
	have    bool
	dirty   bool
	packs   int
	message string
}

// Addr is the I2C address ssd1306.NewI2C talks to.
const Addr = 0x3C

// Open initializes the OLED on an I2C bus. An empty bus name picks the
// first bus.
func Open(busName string, logger *slog.Logger) (*Screen, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize display at 0x%02X: %w", Addr, err)
	}
	logger.Info("display initialized", "bus", bus.String(), "addr", fmt.Sprintf("0x%02X", Addr))
	return New(dev, logger), bus, nil
}

// New wraps an already initialized panel.
func New(panel Panel, logger *slog.Logger) *Screen {
	return &Screen{panel: panel, log: logger, message: "Enter to start"}
}

// Update records a snapshot; the next tick draws it.
func (s *Screen) Update(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.have && snap == s.latest {
		return
	}
	s.latest, s.have, s.dirty = snap, true, true
}

// SetPacks records the inventory total shown on the idle screen.
func (s *Screen) SetPacks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.packs != n {
		s.packs, s.dirty = n, true
	}
}

// Clear returns to the waiting screen with msg.
func (s *Screen) Clear(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.have, s.message, s.dirty = false, msg, true
}

// Run redraws on every tick that saw a change.
func (s *Screen) Run(ctx context.Context, interval time.Duration) {
	if err := s.Flush(); err != nil {
		s.log.Warn("display draw failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.mu.Lock()
		dirty := s.dirty
		s.mu.Unlock()
		if !dirty {
			continue
		}
		if err := s.Flush(); err != nil {
			s.log.Warn("display draw failed", "error", err)
		}
	}
}

// Flush draws the current state immediately.
func (s *Screen) Flush() error {
	s.mu.Lock()
	var img *image1bit.VerticalLSB
	if s.have {
		img = Render(s.latest)
	} else {
		img = Splash(s.message, s.packs)
	}
	s.dirty = false
	s.mu.Unlock()
	return s.panel.Draw(s.panel.Bounds(), img, image.Point{})
}

func blank() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// Render draws mode and phase on two text lines and progress as a bar.
func Render(snap session.Snapshot) *image1bit.VerticalLSB {
	img, drawer := blank()

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(strings.ToUpper(string(snap.Mode)))

	drawer.Dot = fixed.P(0, 28)
	drawer.DrawString(phaseLine(snap))

	// outline
	for x := 0; x < width; x++ {
		img.SetBit(x, barTop, image1bit.On)
		img.SetBit(x, barBottom, image1bit.On)
	}
	for y := barTop; y <= barBottom; y++ {
		img.SetBit(0, y, image1bit.On)
		img.SetBit(width-1, y, image1bit.On)
	}
	fill := FillWidth(snap.Progress)
	for x := 2; x < 2+fill; x++ {
		for y := barTop + 2; y <= barBottom-2; y++ {
			img.SetBit(x, y, image1bit.On)
		}
	}
	return img
}

// FillWidth maps a percentage to the inner bar width in pixels.
func FillWidth(percent int) int {
	inner := width - 4
	switch {
	case percent <= 0:
		return 0
	case percent >= 100:
		return inner
	default:
		return percent * inner / 100
	}
}

func phaseLine(snap session.Snapshot) string {
	switch snap.Phase {
	case phase.Idle, phase.Interacting:
		return fmt.Sprintf("%s %3d%%", snap.Phase, snap.Progress)
	case phase.Ready, phase.Opening:
		return "Opening..."
	case phase.Revealed:
		return "Revealed!"
	default:
		return "Collected"
	}
}

// Splash is the waiting screen.
func Splash(msg string, packs int) *image1bit.VerticalLSB {
	img, drawer := blank()

	drawer.Dot = fixed.P(10, 20)
	drawer.DrawString("Capsule")

	drawer.Dot = fixed.P(0, 40)
	drawer.DrawString(msg)

	drawer.Dot = fixed.P(0, 58)
	drawer.DrawString(fmt.Sprintf("Packs: %d", packs))
	return img
}
