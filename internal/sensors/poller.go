// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides motion sources that run in-process: a polled
// MPU9250 over SPI and a scripted source for demos and tests.
package sensors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/imu"
	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// Poller turns a RawReader into a driver.Sensor by sampling it on a ticker.
type Poller struct {
	reader imu.RawReader
	scale  imu.Scale
	bias   imu.Bias
	alpha  float64
	log    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPoller samples reader; every subscription gets a fresh gravity filter
// with the given alpha.
func NewPoller(reader imu.RawReader, scale imu.Scale, bias imu.Bias, alpha float64, logger *slog.Logger) *Poller {
	return &Poller{reader: reader, scale: scale, bias: bias, alpha: alpha, log: logger}
}

// Subscribe starts sampling at interval. A second Subscribe replaces the
// first.
func (p *Poller) Subscribe(cb func(motion.Payload), interval time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx, cb, interval, imu.NewConverter(p.scale, p.bias, p.alpha))
	return nil
}

func (p *Poller) loop(ctx context.Context, cb func(motion.Payload), interval time.Duration, conv *imu.Converter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		raw, err := p.reader.ReadRaw()
		if err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				p.log.Warn("IMU read failed", "error", err, "failures", failures)
			}
			continue
		}
		failures = 0
		payload := conv.Convert(raw)
		if ctx.Err() != nil {
			return
		}
		cb(payload)
	}
}

// UnsubscribeAll stops sampling. A sample already being delivered may
// still arrive.
func (p *Poller) UnsubscribeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
