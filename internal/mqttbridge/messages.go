// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqttbridge

// RateRequest asks the producer for a new motion sample interval.
type RateRequest struct {
	IntervalMS int `json:"interval_ms"`
}

// MeteringMessage is one microphone level. A null level means the capture
// reported no value this frame.
type MeteringMessage struct {
	DBFS *float64 `json:"dbfs"`
}
