// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Still-capture bias calibration for the MPU-9250 that feeds the gesture
// session. The device lies flat and untouched while accel and gyro are
// sampled; the mean minus gravity becomes the bias the poller subtracts.
//
// Output:
//
//	Writes a JSON file (CALIBRATION_FILE by default) with the bias, the
//	capture statistics and a stillness confidence per sensor.
//
// Run:
//
//	sudo ./calibration -config ./gesture_config.txt
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gesture_engine/internal/app"
	"github.com/relabs-tech/gesture_engine/internal/calibration"
	"github.com/relabs-tech/gesture_engine/internal/config"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	out := flag.String("out", "", "output file, defaults to CALIBRATION_FILE")
	dur := flag.Duration("duration", calibration.DefaultDuration, "capture length")
	yes := flag.Bool("y", false, "start without waiting for Enter")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := app.CalibrationOptions{Path: *out, Duration: *dur, Yes: *yes}
	if err := app.RunCalibration(opts); err != nil {
		log.Fatalf("calibration failed: %v", err)
	}
}
