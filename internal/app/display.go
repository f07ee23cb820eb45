// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/display"
	glog "github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/mqttbridge"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

// RunDisplay drives the status OLED from the snapshot topic, for setups
// where the panel sits on a different host than the session.
func RunDisplay() error {
	cfg := config.Get()
	glog.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen, bus, err := display.Open(cfg.DisplayI2CBus, glog.Component("display"))
	if err != nil {
		return err
	}
	defer bus.Close()
	screen.Clear("Waiting...")

	client, err := mqttbridge.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, glog.Component("mqtt"))
	if err != nil {
		return err
	}
	defer mqttbridge.Disconnect(client)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicSnapshot, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var snap session.Snapshot
		if err := json.Unmarshal(msg.Payload(), &snap); err != nil {
			log.Printf("display: snapshot unmarshal error: %v", err)
			return
		}
		screen.Update(snap)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cfg.TopicSnapshot, token.Error())
	}
	log.Printf("display: subscribed to %s", cfg.TopicSnapshot)

	log.Println("display: starting update loop")
	screen.Run(ctx, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond)

	screen.Clear("Bye")
	return screen.Flush()
}
