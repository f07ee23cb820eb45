// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_engine/internal/calibration"
	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/driver"
	"github.com/relabs-tech/gesture_engine/internal/feedback"
	"github.com/relabs-tech/gesture_engine/internal/imu"
	"github.com/relabs-tech/gesture_engine/internal/inventory"
	"github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/mqttbridge"
	"github.com/relabs-tech/gesture_engine/internal/profile"
	"github.com/relabs-tech/gesture_engine/internal/sensors"
	"github.com/relabs-tech/gesture_engine/internal/serialboard"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

// DefaultScript drives the scripted source when no script is given.
const DefaultScript = "idle:1s,shake:3s,idle:1s,blow:3s,idle:1s,flick:2s"

// rig is everything a session host needs, plus what has to be closed.
type rig struct {
	deps    session.Deps
	client  mqtt.Client
	store   *inventory.Store
	closers []io.Closer
	stops   []func()
}

func (r *rig) Close() {
	for i := len(r.stops) - 1; i >= 0; i-- {
		r.stops[i]()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			log.Warn("close error", "error", err)
		}
	}
	if r.client != nil {
		mqttbridge.Disconnect(r.client)
	}
}

// needsMQTT reports whether any selected source or sink talks to the broker.
func needsMQTT(cfg *config.Config) bool {
	return cfg.SensorSource == config.SourceMQTT || cfg.AudioSource == config.SourceMQTT || cfg.MQTTBroker != ""
}

// buildRig opens the drivers selected by cfg. Optional feedback devices that
// fail to open are logged and skipped; input sources and the inventory are
// required.
func buildRig(ctx context.Context, cfg *config.Config, script string) (*rig, error) {
	r := &rig{}
	ok := false
	defer func() {
		if !ok {
			r.Close()
		}
	}()

	var err error
	if needsMQTT(cfg) {
		r.client, err = mqttbridge.Connect(cfg.MQTTBroker, cfg.MQTTClientIDSession, log.Component("mqtt"))
		if err != nil {
			return nil, err
		}
	}

	var board *serialboard.Board
	if cfg.SensorSource == config.SourceSerial || cfg.AudioSource == config.SourceSerial {
		board, err = serialboard.Open(cfg.SerialPort, uint(cfg.SerialBaudRate), log.Component("serial"))
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, board)
		go func() {
			if err := board.Run(ctx); err != nil && !errors.Is(err, serialboard.ErrClosed) {
				log.Error("serial board stopped", "error", err)
			}
		}()
	}

	var scripted *sensors.Scripted
	if cfg.SensorSource == config.SourceScripted || cfg.AudioSource == config.SourceScripted {
		if script == "" {
			script = DefaultScript
		}
		sc, err := sensors.ParseScript(script)
		if err != nil {
			return nil, err
		}
		sc.Loop = true
		scripted = sensors.NewScripted(sc)
	}

	switch cfg.SensorSource {
	case config.SourceMQTT:
		r.deps.Sensors = mqttbridge.NewSensorDriver(r.client, cfg.TopicMotion, cfg.TopicRate, log.Component("mqtt-sensor"))
	case config.SourceMPU9250:
		p, err := openPoller(cfg)
		if err != nil {
			return nil, err
		}
		r.deps.Sensors = p
	case config.SourceSerial:
		r.deps.Sensors = board
	case config.SourceScripted:
		r.deps.Sensors = scripted
	}

	switch cfg.AudioSource {
	case config.SourceMQTT:
		r.deps.Audio = mqttbridge.NewAudioDriver(r.client, cfg.TopicMetering, log.Component("mqtt-audio"))
	case config.SourceSerial:
		r.deps.Audio = board
	case config.SourceScripted:
		r.deps.Audio = scripted
	}

	if cfg.HapticGPIOPin != "" {
		h, err := feedback.OpenGPIOHaptics(cfg.HapticGPIOPin, log.Component("haptics"))
		if err != nil {
			log.Warn("haptics disabled", "error", err)
		} else {
			r.deps.Haptics = h
			r.closers = append(r.closers, h)
		}
	}

	if cfg.SoundEnabled {
		p := feedback.NewSoundPlayer(cfg.SoundSampleRate)
		if err := p.Init(); err != nil {
			log.Warn("sound disabled", "error", err)
		} else {
			r.deps.Sounds = p
			r.stops = append(r.stops, p.Close)
		}
	}

	r.store, err = inventory.Open(cfg.InventoryDB)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, r.store)
	r.deps.Inventory = r.store
	r.deps.Logger = log.Component("session")
	ok = true
	return r, nil
}

// openPoller opens the MPU9250 and applies the stored calibration, if any.
func openPoller(cfg *config.Config) (*sensors.Poller, error) {
	logger := log.Component("imu")
	dev, err := sensors.OpenMPU9250(sensors.IMUOptions{
		SPIDevice:  cfg.IMUSPIDevice,
		CSPin:      cfg.IMUCSPin,
		AccelRange: cfg.IMUAccelRange,
		GyroRange:  cfg.IMUGyroRange,
	}, logger)
	if err != nil {
		return nil, err
	}
	bias := loadBias(cfg.CalibrationFile, dev.Scale(), logger)
	return sensors.NewPoller(dev, dev.Scale(), bias, cfg.IMUHighPassAlpha, logger), nil
}

func loadBias(path string, scale imu.Scale, logger *slog.Logger) imu.Bias {
	if path == "" {
		return imu.Bias{}
	}
	res, err := calibration.Load(path, scale)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no calibration file, running uncalibrated", "path", path)
		} else {
			logger.Warn("ignoring calibration", "error", err)
		}
		return imu.Bias{}
	}
	logger.Info("calibration loaded", "path", path, "confidence", res.Confidence(), "taken", res.Timestamp)
	return res.Bias
}

// profiles resolves modes with the override file and the configured idle
// timeout applied.
func profiles(cfg *config.Config) (func(profile.Mode) (profile.Profile, error), error) {
	overrides, err := profile.LoadOverrides(cfg.ProfileFile)
	if err != nil {
		return nil, err
	}
	idle := cfg.IdleTimeoutDuration()
	return func(m profile.Mode) (profile.Profile, error) {
		p, err := profile.ForMode(m)
		if err != nil {
			return profile.Profile{}, err
		}
		if idle > 0 {
			p.IdleTimeout = idle
		}
		return overrides.Apply(p), nil
	}, nil
}

// packCounter forwards AddPack and reports the new total.
type packCounter struct {
	driver.Inventory
	onTotal func(int)
}

func (c packCounter) AddPack(ctx context.Context, n int) (int, error) {
	total, err := c.Inventory.AddPack(ctx, n)
	if err != nil {
		return total, fmt.Errorf("inventory: %w", err)
	}
	c.onTotal(total)
	return total, nil
}
