// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqttbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// SensorDriver receives motion payloads from a producer over MQTT. On
// Subscribe it publishes the requested sample interval on the rate topic.
type SensorDriver struct {
	client      mqtt.Client
	motionTopic string
	rateTopic   string
	log         *slog.Logger

	mu         sync.Mutex
	subscribed bool
}

// NewSensorDriver creates a driver on an already connected client.
func NewSensorDriver(client mqtt.Client, motionTopic, rateTopic string, logger *slog.Logger) *SensorDriver {
	return &SensorDriver{
		client:      client,
		motionTopic: motionTopic,
		rateTopic:   rateTopic,
		log:         logger,
	}
}

func (d *SensorDriver) Subscribe(cb func(motion.Payload), interval time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.client.IsConnected() {
		return fmt.Errorf("mqtt motion: %w: broker not connected", driver.ErrSensorUnavailable)
	}

	if d.rateTopic != "" {
		req, _ := json.Marshal(RateRequest{IntervalMS: int(interval / time.Millisecond)})
		if err := wait(d.client.Publish(d.rateTopic, qos, true, req)); err != nil {
			// the producer keeps its default rate
			d.log.Warn("failed to publish sample rate", "topic", d.rateTopic, "error", err)
		}
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var p motion.Payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			d.log.Debug("motion unmarshal error", "error", err)
			return
		}
		cb(p)
	}
	if err := wait(d.client.Subscribe(d.motionTopic, qos, handler)); err != nil {
		return fmt.Errorf("mqtt motion subscribe %s: %w", d.motionTopic, err)
	}
	d.subscribed = true
	d.log.Debug("subscribed to motion", "topic", d.motionTopic, "interval", interval.String())
	return nil
}

func (d *SensorDriver) UnsubscribeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.subscribed {
		return
	}
	d.subscribed = false
	token := d.client.Unsubscribe(d.motionTopic)
	// may run inside the message handler, so never wait here
	go func() {
		if err := wait(token); err != nil {
			d.log.Debug("motion unsubscribe failed", "error", err)
		}
	}()
}
