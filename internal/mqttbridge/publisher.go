// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqttbridge

import (
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/motion"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

// Publisher forwards session output to MQTT. Publishes are fire-and-forget
// so the session callback path never waits on the broker.
type Publisher struct {
	client        mqtt.Client
	eventsTopic   string
	snapshotTopic string
	log           *slog.Logger
}

func NewPublisher(client mqtt.Client, eventsTopic, snapshotTopic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:        client,
		eventsTopic:   eventsTopic,
		snapshotTopic: snapshotTopic,
		log:           logger,
	}
}

// PublishEvent sends an accepted gesture event.
func (p *Publisher) PublishEvent(ev gesture.Event) {
	p.send(p.eventsTopic, false, ev)
}

// PublishSnapshot sends a session snapshot, retained so late subscribers
// see the current state.
func (p *Publisher) PublishSnapshot(s session.Snapshot) {
	p.send(p.snapshotTopic, true, s)
}

func (p *Publisher) send(topic string, retained bool, v any) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		p.log.Error("json marshal error", "topic", topic, "error", err)
		return
	}
	p.client.Publish(topic, qos, retained, payload)
}

// Producer is the sensing side: it publishes motion and metering and
// follows rate requests from the session.
type Producer struct {
	client        mqtt.Client
	motionTopic   string
	meteringTopic string
	rateTopic     string
	log           *slog.Logger
}

func NewProducer(client mqtt.Client, motionTopic, meteringTopic, rateTopic string, logger *slog.Logger) *Producer {
	return &Producer{
		client:        client,
		motionTopic:   motionTopic,
		meteringTopic: meteringTopic,
		rateTopic:     rateTopic,
		log:           logger,
	}
}

// PublishMotion sends one motion sample.
func (p *Producer) PublishMotion(m motion.Payload) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	p.client.Publish(p.motionTopic, qos, false, payload)
	return nil
}

// PublishMetering sends one microphone level.
func (p *Producer) PublishMetering(dbfs float64) error {
	payload, err := json.Marshal(MeteringMessage{DBFS: &dbfs})
	if err != nil {
		return err
	}
	p.client.Publish(p.meteringTopic, qos, false, payload)
	return nil
}

// OnRate calls fn whenever the session asks for a new sample interval.
func (p *Producer) OnRate(fn func(time.Duration)) error {
	if p.rateTopic == "" {
		return nil
	}
	return wait(p.client.Subscribe(p.rateTopic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		var req RateRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil || req.IntervalMS <= 0 {
			p.log.Debug("ignoring rate request", "payload", string(msg.Payload()))
			return
		}
		fn(time.Duration(req.IntervalMS) * time.Millisecond)
	}))
}
