// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gesture_engine/internal/app"
	"github.com/relabs-tech/gesture_engine/internal/config"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	mode := flag.String("mode", "", "gesture mode, overrides GESTURE_MODE")
	script := flag.String("script", "", "script for SENSOR_SOURCE=scripted")
	static := flag.String("static", "", "directory of web assets served at /")
	noWeb := flag.Bool("no-web", false, "do not start the web server")
	flag.Parse()

	log.Println("starting gesture session host")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := app.SessionOptions{Mode: *mode, Script: *script, Static: *static, NoWeb: *noWeb}
	if err := app.RunSession(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
