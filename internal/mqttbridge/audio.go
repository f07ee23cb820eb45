// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_engine/internal/driver"
)

// AudioDriver receives microphone levels from a producer over MQTT. A
// recording is a live subscription to the metering topic.
type AudioDriver struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger

	mu    sync.Mutex
	gen   uint64
	owner uint64 // generation of the live subscription, 0 when none
}

// NewAudioDriver creates a driver on an already connected client.
func NewAudioDriver(client mqtt.Client, topic string, logger *slog.Logger) *AudioDriver {
	return &AudioDriver{client: client, topic: topic, log: logger}
}

// RequestPermission succeeds when the broker is reachable; the remote
// producer owns the microphone permission.
func (d *AudioDriver) RequestPermission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.client.IsConnected() {
		return fmt.Errorf("mqtt metering: broker not connected")
	}
	return nil
}

func (d *AudioDriver) StartMetering(ctx context.Context, _ driver.MeteringConfig, cb func(dbfs float64)) (driver.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.owner = gen
	d.mu.Unlock()

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if !d.owns(gen) {
			return
		}
		var m MeteringMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			d.log.Debug("metering unmarshal error", "error", err)
			return
		}
		if m.DBFS == nil {
			cb(math.NaN())
			return
		}
		cb(*m.DBFS)
	}
	if err := wait(d.client.Subscribe(d.topic, qos, handler)); err != nil {
		d.release(gen)
		return nil, fmt.Errorf("mqtt metering subscribe %s: %w", d.topic, err)
	}
	return &subscription{d: d, gen: gen}, nil
}

func (d *AudioDriver) owns(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner == gen
}

// release drops ownership and reports whether gen was the live owner.
func (d *AudioDriver) release(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owner != gen {
		return false
	}
	d.owner = 0
	return true
}

type subscription struct {
	d    *AudioDriver
	gen  uint64
	once sync.Once
}

// Stop unsubscribes once, and only while this subscription still owns the
// metering topic. The broker acknowledgement is awaited in the background.
func (s *subscription) Stop() error {
	s.once.Do(func() {
		if !s.d.release(s.gen) {
			return
		}
		token := s.d.client.Unsubscribe(s.d.topic)
		go func() {
			if err := wait(token); err != nil {
				s.d.log.Debug("metering unsubscribe failed", "topic", s.d.topic, "error", err)
			}
		}()
	})
	return nil
}
