// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqttbridge carries motion samples, microphone levels and session
// output over MQTT, so the sensing hardware and the game loop can run in
// separate processes.
package mqttbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = 0
	tokenTimeout   = 5 * time.Second
	disconnectWait = 250
)

var errTimeout = errors.New("mqtt: timed out waiting for broker")

// Connect opens a client with auto-reconnect enabled.
func Connect(broker, clientID string, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(tokenTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "broker", broker, "error", err)
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", "broker", broker, "client_id", clientID)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// Disconnect closes the client after letting in-flight work drain.
func Disconnect(client mqtt.Client) {
	client.Disconnect(disconnectWait)
}

func wait(token mqtt.Token) error {
	if !token.WaitTimeout(tokenTimeout) {
		return errTimeout
	}
	return token.Error()
}
