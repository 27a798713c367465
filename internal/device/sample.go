// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

// AllSensors registers a tracker handler for every sensor index.
const AllSensors = -1

// TrackerSample is one pose report for a single sensor of a tracker.
// Position is in the device's native length unit.
type TrackerSample struct {
	Sensor int        `json:"sensor"`
	Quat   [4]float64 `json:"quat"` // x, y, z, w
	Pos    [3]float64 `json:"pos"`
}

// ButtonSample reports a state change of one button.
type ButtonSample struct {
	Button int `json:"button"`
	State  int `json:"state"` // 1 pressed, 0 released
}

// Pressed reports whether the sample is a press transition.
func (b ButtonSample) Pressed() bool {
	return b.State == 1
}

// AnalogSample carries the current value of every analog channel.
type AnalogSample struct {
	Channels []float64 `json:"channels"`
}

type (
	TrackerHandler func(TrackerSample)
	ButtonHandler  func(ButtonSample)
	AnalogHandler  func(AnalogSample)
)
