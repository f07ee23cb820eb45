// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_engine/internal/imu"
)

// IMUOptions selects the MPU9250 wiring and ranges.
type IMUOptions struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0..3 => ±2/4/8/16 g
	GyroRange  byte // 0..3 => ±250/500/1000/2000 °/s
}

// MPU9250 reads accelerometer and gyroscope counts over SPI.
type MPU9250 struct {
	dev   *mpu9250.MPU9250
	scale imu.Scale
}

// OpenMPU9250 initializes the IMU. Self-test and calibration failures are
// logged, not fatal.
func OpenMPU9250(opts IMUOptions, logger *slog.Logger) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	logger.Info("IMU ranges set",
		"accel_g", []int{2, 4, 8, 16}[opts.AccelRange&3],
		"gyro_dps", []int{250, 500, 1000, 2000}[opts.GyroRange&3])

	if res, err := dev.SelfTest(); err != nil {
		logger.Warn("IMU self-test failed", "error", err)
	} else {
		logger.Debug("IMU self-test passed",
			"accel_dev_x", res.AccelDeviation.X, "accel_dev_y", res.AccelDeviation.Y, "accel_dev_z", res.AccelDeviation.Z,
			"gyro_dev_x", res.GyroDeviation.X, "gyro_dev_y", res.GyroDeviation.Y, "gyro_dev_z", res.GyroDeviation.Z)
	}

	if err := dev.Calibrate(); err != nil {
		logger.Warn("IMU calibration failed", "error", err)
	}

	return &MPU9250{dev: dev, scale: imu.Scale{AccelRange: opts.AccelRange, GyroRange: opts.GyroRange}}, nil
}

// Scale reports the unit conversion for the configured ranges.
func (m *MPU9250) Scale() imu.Scale { return m.scale }

// ReadRaw reads accelerometer and gyroscope data.
func (m *MPU9250) ReadRaw() (imu.IMURaw, error) {
	ax, err := m.dev.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := m.dev.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := m.dev.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := m.dev.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := m.dev.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := m.dev.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.IMURaw{Ax: ax, Ay: ay, Az: az, Gx: gx, Gy: gy, Gz: gz}, nil
}
