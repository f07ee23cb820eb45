// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/gesture"
	glog "github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/mqttbridge"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

// RunConsoleMQTT prints gesture events and phase changes published by a
// running session until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()
	glog.Init(cfg.LogLevel)

	client, err := mqttbridge.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole, glog.Component("mqtt"))
	if err != nil {
		return err
	}
	defer mqttbridge.Disconnect(client)
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	c := &console{out: os.Stdout}

	eventsToken := client.Subscribe(cfg.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		c.event(msg.Payload())
	})
	eventsToken.Wait()
	if eventsToken.Error() != nil {
		return eventsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEvents)

	snapToken := client.Subscribe(cfg.TopicSnapshot, 0, func(_ mqtt.Client, msg mqtt.Message) {
		c.snapshot(msg.Payload())
	})
	snapToken.Wait()
	if snapToken.Error() != nil {
		return snapToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSnapshot)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("console: shutting down")
	return nil
}

// console formats session traffic. Snapshots print only when the phase or
// the whole percent changes. Callbacks are serialized by the MQTT client.
type console struct {
	out  io.Writer
	last *session.Snapshot
}

func (c *console) event(payload []byte) {
	var ev gesture.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("console: event unmarshal error: %v", err)
		return
	}
	fmt.Fprintf(c.out, "[%-5s] intensity=%.2f at %s\n",
		ev.Kind, ev.Intensity, ev.FiredAt.Format("15:04:05.000"))
}

func (c *console) snapshot(payload []byte) {
	var s session.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Printf("console: snapshot unmarshal error: %v", err)
		return
	}
	if c.last != nil && c.last.SessionID == s.SessionID && c.last.Phase == s.Phase && c.last.Progress == s.Progress {
		return
	}
	c.last = &s
	fmt.Fprintf(c.out, "[SNAP ] %-16s %-11s %3d%%  blow=%.2f\n",
		s.Mode, s.Phase, s.Progress, s.BlowIntensity)
}
