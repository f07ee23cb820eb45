// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/profile"
)

// Source selectors for SENSOR_SOURCE and AUDIO_SOURCE.
const (
	SourceMQTT     = "mqtt"
	SourceMPU9250  = "mpu9250"
	SourceSerial   = "serial"
	SourceScripted = "scripted"
	SourceNone     = "none"
)

// displayAddr is the fixed I2C address of the SSD1306 panel.
const displayAddr = 0x3C

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDSession  string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicMotion   string // producer -> session, motion.Payload JSON
	TopicMetering string // producer -> session, dBFS level JSON
	TopicRate     string // session -> producer, requested sample interval
	TopicEvents   string // session -> consumers, accepted gesture events
	TopicSnapshot string // session -> consumers, throttled snapshots

	// Driver selection
	SensorSource string
	AudioSource  string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte
	// High-pass filter coefficient that strips gravity from raw accel
	IMUHighPassAlpha float64
	CalibrationFile  string

	// Serial sensor board
	SerialPort     string
	SerialBaudRate int

	// Feedback
	HapticGPIOPin   string // empty disables haptics
	SoundEnabled    bool
	SoundSampleRate int

	// Web Server
	WebServerPort int

	// Display
	DisplayEnabled        bool
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Inventory
	InventoryDB string

	// Game
	GestureMode profile.Mode
	ProfileFile string
	IdleTimeout int // milliseconds, 0 disables

	// Timing
	IMUSampleInterval  int // milliseconds, producer default before the session asks
	ConsoleLogInterval int // milliseconds

	// Logging
	LogLevel string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values used for keys missing from the file.
func Default() *Config {
	return &Config{
		MQTTClientIDSession:   "gesture-session",
		MQTTClientIDProducer:  "gesture-imu-producer",
		MQTTClientIDConsole:   "gesture-console",
		MQTTClientIDDisplay:   "gesture-display",
		TopicMotion:           "gesture/motion",
		TopicMetering:         "gesture/metering",
		TopicRate:             "gesture/motion/rate",
		TopicEvents:           "gesture/events",
		TopicSnapshot:         "gesture/snapshot",
		SensorSource:          SourceMQTT,
		AudioSource:           SourceMQTT,
		IMUAccelRange:         2,
		IMUGyroRange:          2,
		IMUHighPassAlpha:      0.95,
		SerialBaudRate:        115200,
		SoundEnabled:          true,
		SoundSampleRate:       44100,
		WebServerPort:         8080,
		DisplayI2CAddr:        displayAddr,
		DisplayUpdateInterval: 200,
		InventoryDB:           "gesture_inventory.db",
		GestureMode:           profile.ModeShake,
		IMUSampleInterval:     50,
		ConsoleLogInterval:    500,
		LogLevel:              "info",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SESSION":
		c.MQTTClientIDSession = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_MOTION":
		c.TopicMotion = value
	case "TOPIC_METERING":
		c.TopicMetering = value
	case "TOPIC_RATE":
		c.TopicRate = value
	case "TOPIC_EVENTS":
		c.TopicEvents = value
	case "TOPIC_SNAPSHOT":
		c.TopicSnapshot = value

	// Driver selection
	case "SENSOR_SOURCE":
		c.SensorSource, err = oneOf(key, value, SourceMQTT, SourceMPU9250, SourceSerial, SourceScripted)
	case "AUDIO_SOURCE":
		c.AudioSource, err = oneOf(key, value, SourceMQTT, SourceSerial, SourceScripted, SourceNone)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		var v int
		v, err = intInRange(key, value, 0, 3)
		c.IMUAccelRange = byte(v)
	case "IMU_GYRO_RANGE":
		var v int
		v, err = intInRange(key, value, 0, 3)
		c.IMUGyroRange = byte(v)
	case "IMU_HIGHPASS_ALPHA":
		alpha, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid IMU_HIGHPASS_ALPHA %q: %w", value, perr)
		}
		if alpha <= 0 || alpha >= 1 {
			return fmt.Errorf("IMU_HIGHPASS_ALPHA must be in (0,1), got %v", alpha)
		}
		c.IMUHighPassAlpha = alpha
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// Serial sensor board
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = intInRange(key, value, 1200, 4_000_000)

	// Feedback
	case "HAPTIC_GPIO_PIN":
		c.HapticGPIOPin = value
	case "SOUND_ENABLED":
		c.SoundEnabled, err = parseBool(key, value)
	case "SOUND_SAMPLE_RATE":
		c.SoundSampleRate, err = intInRange(key, value, 8000, 192000)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = intInRange(key, value, 0, 65535)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = intInRange(key, value, 10, 60_000)

	// Inventory
	case "INVENTORY_DB":
		c.InventoryDB = value

	// Game
	case "GESTURE_MODE":
		mode, perr := profile.ParseMode(value)
		if perr != nil {
			return fmt.Errorf("invalid GESTURE_MODE: %w", perr)
		}
		c.GestureMode = mode
	case "PROFILE_FILE":
		c.ProfileFile = value
	case "IDLE_TIMEOUT":
		c.IdleTimeout, err = intInRange(key, value, 0, 3_600_000)

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = intInRange(key, value, 1, 10_000)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = intInRange(key, value, 1, 60_000)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func intInRange(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func oneOf(key, value string, allowed ...string) (string, error) {
	v := strings.ToLower(value)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %v, got %q", key, allowed, value)
}

// validate checks that the selected drivers have what they need.
func (c *Config) validate() error {
	if (c.SensorSource == SourceMQTT || c.AudioSource == SourceMQTT) && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for mqtt sources")
	}
	if c.SensorSource == SourceMPU9250 && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required for SENSOR_SOURCE=mpu9250")
	}
	if (c.SensorSource == SourceSerial || c.AudioSource == SourceSerial) && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required for serial sources")
	}
	if c.DisplayEnabled && c.DisplayI2CAddr != displayAddr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X, the only address the SSD1306 driver supports", displayAddr)
	}
	if c.InventoryDB == "" {
		return fmt.Errorf("INVENTORY_DB is required")
	}
	return nil
}

// IdleTimeoutDuration returns IDLE_TIMEOUT as a duration.
func (c *Config) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
