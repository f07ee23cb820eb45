// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/motion"
	"github.com/relabs-tech/gesture_engine/internal/mqttbridge"
	"github.com/relabs-tech/gesture_engine/internal/sensors"
)

const producerMeteringInterval = 100 * time.Millisecond

// RunIMUProducer reads the MPU9250 and publishes motion samples to MQTT at
// the interval the session last asked for. With a script it publishes
// synthetic motion and metering instead, for hosts without the sensor.
func RunIMUProducer(script string) error {
	cfg := config.Get()
	log.Init(cfg.LogLevel)
	logger := log.Component("imu-producer")
	logger.Info("starting gesture IMU producer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src driver.Sensor
	var mic driver.Audio
	if script != "" {
		sc, err := sensors.ParseScript(script)
		if err != nil {
			return err
		}
		sc.Loop = true
		s := sensors.NewScripted(sc)
		src, mic = s, s
		logger.Info("using scripted motion source", "script", script)
	} else {
		p, err := openPoller(cfg)
		if err != nil {
			return err
		}
		src = p
	}

	client, err := mqttbridge.Connect(cfg.MQTTBroker, cfg.MQTTClientIDProducer, log.Component("mqtt"))
	if err != nil {
		return err
	}
	defer mqttbridge.Disconnect(client)
	prod := mqttbridge.NewProducer(client, cfg.TopicMotion, cfg.TopicMetering, cfg.TopicRate, logger)

	var published, failed atomic.Uint64
	var last atomic.Pointer[motion.Payload]
	publish := func(p motion.Payload) {
		if err := prod.PublishMotion(p); err != nil {
			if failed.Add(1) == 1 {
				logger.Warn("publish failed", "error", err)
			}
			return
		}
		published.Add(1)
		last.Store(&p)
	}

	interval := time.Duration(cfg.IMUSampleInterval) * time.Millisecond
	if err := src.Subscribe(publish, interval); err != nil {
		return err
	}
	defer src.UnsubscribeAll()

	// the session asks for a faster rate in flick modes
	if err := prod.OnRate(func(d time.Duration) {
		logger.Info("sample interval changed", "interval", d)
		if err := src.Subscribe(publish, d); err != nil {
			logger.Error("resubscribe failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if mic != nil {
		rec, err := mic.StartMetering(ctx, driver.MeteringConfig{Interval: producerMeteringInterval}, func(dbfs float64) {
			_ = prod.PublishMetering(dbfs)
		})
		if err != nil {
			return err
		}
		defer func() { _ = rec.Stop() }()
	}

	logger.Info("connected to MQTT, publishing", "topic", cfg.TopicMotion, "interval", interval)

	ticker := time.NewTicker(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping", "published", published.Load(), "failed", failed.Load())
			return nil
		case <-ticker.C:
			p := last.Load()
			if p == nil {
				continue
			}
			logger.Debug("tick",
				"published", published.Load(),
				"accel", p.Acceleration,
				"rotation", p.RotationRate,
			)
		}
	}
}
