// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package serialboard reads motion and microphone sentences from a sensor
// board attached over a serial line.
package serialboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/motion"
)

var ErrClosed = errors.New("serial board closed")

// Board implements both driver.Sensor and driver.Audio on one serial line.
type Board struct {
	port   io.ReadWriteCloser
	parser *nmea.SentenceParser
	log    *slog.Logger

	mu       sync.Mutex
	onMotion func(motion.Payload)
	onLevel  func(float64)
	levelGen uint64 // owner of onLevel
	closed   bool
}

// Open opens the serial port with the board's line settings.
func Open(portName string, baud uint, logger *slog.Logger) (*Board, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial board: open %s: %w", portName, err)
	}
	logger.Info("serial board opened", "port", portName, "baud", baud)
	return New(port, logger), nil
}

// New wraps an already open line.
func New(port io.ReadWriteCloser, logger *slog.Logger) *Board {
	return &Board{port: port, parser: newParser(), log: logger}
}

// Run reads sentences until the line fails or ctx is cancelled.
func (b *Board) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = b.Close() })
	defer stop()

	reader := bufio.NewReader(b.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("serial board read: %w", err)
		}
		b.handleLine(line)
	}
}

func (b *Board) handleLine(line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return
	}
	sentence, err := b.parser.Parse(line)
	if err != nil {
		b.log.Debug("sentence parse error", "error", err, "line", line)
		return
	}

	b.mu.Lock()
	onMotion, onLevel := b.onMotion, b.onLevel
	b.mu.Unlock()

	switch s := sentence.(type) {
	case Motion:
		if onMotion != nil {
			onMotion(s.Payload)
		}
	case Metering:
		if onLevel != nil {
			onLevel(s.DBFS)
		}
	}
}

func (b *Board) Subscribe(cb func(motion.Payload), interval time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("serial board: %w", driver.ErrSensorUnavailable)
	}
	if _, err := io.WriteString(b.port, ConfigSentence(int(interval/time.Millisecond))); err != nil {
		b.log.Warn("failed to send sample interval", "error", err)
	}
	b.onMotion = cb
	return nil
}

func (b *Board) UnsubscribeAll() {
	b.mu.Lock()
	b.onMotion = nil
	b.mu.Unlock()
}

// RequestPermission always succeeds on an open board; the microphone is
// wired to the same line.
func (b *Board) RequestPermission(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

func (b *Board) StartMetering(_ context.Context, _ driver.MeteringConfig, cb func(float64)) (driver.Recording, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.levelGen++
	b.onLevel = cb
	return recording{b: b, gen: b.levelGen}, nil
}

type recording struct {
	b   *Board
	gen uint64
}

// Stop clears the level callback only while this recording still owns it.
func (r recording) Stop() error {
	r.b.mu.Lock()
	if r.b.levelGen == r.gen {
		r.b.onLevel = nil
	}
	r.b.mu.Unlock()
	return nil
}

// Close releases the serial line. Safe to call more than once.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.onMotion, b.onLevel = nil, nil
	return b.port.Close()
}
