// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/gesture_engine/internal/app"
	"github.com/relabs-tech/gesture_engine/internal/config"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	mode := flag.String("mode", "", "gesture mode, overrides GESTURE_MODE")
	script := flag.String("script", app.DefaultScript, "gesture script, action:duration pairs")
	animation := flag.Duration("animation", time.Second, "simulated reveal animation length")
	flag.Parse()

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunSimulate(*mode, *script, *animation); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
