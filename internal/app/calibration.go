// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/calibration"
	"github.com/relabs-tech/gesture_engine/internal/config"
	"github.com/relabs-tech/gesture_engine/internal/log"
	"github.com/relabs-tech/gesture_engine/internal/sensors"
)

const lowConfidence = 0.5

// CalibrationOptions control RunCalibration.
type CalibrationOptions struct {
	Path     string // defaults to CALIBRATION_FILE
	Duration time.Duration
	Yes      bool // skip the prompt
	Stdin    io.Reader
	Stdout   io.Writer
}

// RunCalibration guides the user through a still capture on the MPU9250
// and writes the bias file the session poller loads on start.
func RunCalibration(opts CalibrationOptions) error {
	cfg := config.Get()
	log.Init(cfg.LogLevel)

	out := opts.Path
	if out == "" {
		out = cfg.CalibrationFile
	}
	if out == "" {
		return errors.New("no output path: set CALIBRATION_FILE or pass -out")
	}
	if opts.Duration <= 0 {
		opts.Duration = calibration.DefaultDuration
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	w := opts.Stdout
	if w == nil {
		w = os.Stdout
	}

	dev, err := sensors.OpenMPU9250(sensors.IMUOptions{
		SPIDevice:  cfg.IMUSPIDevice,
		CSPin:      cfg.IMUCSPin,
		AccelRange: cfg.IMUAccelRange,
		GyroRange:  cfg.IMUGyroRange,
	}, log.Component("imu"))
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "IMU bias calibration")
	fmt.Fprintln(w, "Place the device flat, screen up, on a stable surface and do not touch it.")
	if !opts.Yes {
		fmt.Fprint(w, "Press Enter to start... ")
		if _, err := bufio.NewReader(opts.Stdin).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(w, "Capturing for %s...\n", opts.Duration)
	res, err := calibration.Capture(ctx, dev, dev.Scale(), opts.Duration, calibration.DefaultRate)
	if err != nil {
		return err
	}
	printCalibration(w, res)

	if res.Confidence() < lowConfidence {
		fmt.Fprintln(w, "WARNING: the device moved during capture; consider running again.")
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := calibration.Save(out, res); err != nil {
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	fmt.Fprintf(w, "Saved %s\n", out)
	return nil
}

func printCalibration(w io.Writer, r calibration.Result) {
	fmt.Fprintf(w, "  samples:      %d over %.1fs\n", r.AccelStats.Samples, r.AccelStats.DurationSec)
	fmt.Fprintf(w, "  accel bias:   x=%+.4f y=%+.4f z=%+.4f m/s²  (σ %.4f %.4f %.4f)\n",
		r.Bias.Accel.X, r.Bias.Accel.Y, r.Bias.Accel.Z,
		r.AccelStats.StdDev.X, r.AccelStats.StdDev.Y, r.AccelStats.StdDev.Z)
	fmt.Fprintf(w, "  gyro bias:    α=%+.5f β=%+.5f γ=%+.5f rad/s  (σ %.5f %.5f %.5f)\n",
		r.Bias.Rotation.Alpha, r.Bias.Rotation.Beta, r.Bias.Rotation.Gamma,
		r.GyroStats.StdDev.X, r.GyroStats.StdDev.Y, r.GyroStats.StdDev.Z)
	fmt.Fprintf(w, "  confidence:   accel %.2f  gyro %.2f\n", r.AccelConfidence, r.GyroConfidence)
}
