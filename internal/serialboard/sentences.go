// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialboard

import (
	"fmt"
	"math"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/gesture_engine/internal/motion"
)

// Proprietary sentence types emitted by the sensor board firmware.
//
//	$PGMOT,<ax>,<ay>,<az>,<alpha>,<beta>,<gamma>*hh   user acceleration m/s², rotation rad/s
//	$PGMIC,<dbfs>*hh                                  microphone level, empty when unknown
//	$PGCFG,<interval_ms>*hh                           host to board: sample interval
const (
	TypeMotion   = "GMOT"
	TypeMetering = "GMIC"
	TypeConfig   = "GCFG"
)

// Motion is a decoded $PGMOT sentence.
type Motion struct {
	nmea.BaseSentence
	Payload motion.Payload
}

// Metering is a decoded $PGMIC sentence. DBFS is NaN when the field is empty.
type Metering struct {
	nmea.BaseSentence
	DBFS float64
}

func parseMotion(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 6 {
		return nil, fmt.Errorf("nmea: %s expects 6 fields, got %d", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	accel := motion.Vec3{
		X: p.Float64(0, "ax"),
		Y: p.Float64(1, "ay"),
		Z: p.Float64(2, "az"),
	}
	rot := motion.RotationRate{
		Alpha: p.Float64(3, "alpha"),
		Beta:  p.Float64(4, "beta"),
		Gamma: p.Float64(5, "gamma"),
	}
	return Motion{
		BaseSentence: s,
		Payload:      motion.Payload{Acceleration: &accel, RotationRate: &rot},
	}, p.Err()
}

func parseMetering(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 1 {
		return nil, fmt.Errorf("nmea: %s expects 1 field, got %d", s.Prefix(), len(s.Fields))
	}
	if strings.TrimSpace(s.Fields[0]) == "" {
		return Metering{BaseSentence: s, DBFS: math.NaN()}, nil
	}
	p := nmea.NewParser(s)
	return Metering{BaseSentence: s, DBFS: p.Float64(0, "dbfs")}, p.Err()
}

func newParser() *nmea.SentenceParser {
	return &nmea.SentenceParser{
		CustomParsers: map[string]nmea.ParserFunc{
			TypeMotion:   parseMotion,
			TypeMetering: parseMetering,
		},
	}
}

// ConfigSentence encodes a sample interval request for the board.
func ConfigSentence(intervalMS int) string {
	body := fmt.Sprintf("P%s,%d", TypeConfig, intervalMS)
	return fmt.Sprintf("$%s*%s\r\n", body, nmea.Checksum(body))
}
