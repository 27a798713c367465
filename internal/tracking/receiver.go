// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/cave_tracker/internal/device"
	"github.com/relabs-tech/cave_tracker/internal/units"
)

// DumpButton is the button whose press prints the diagnostic dump.
const DumpButton = 0

// Receiver is the device.Sink writing into a State.
type Receiver struct {
	state *State
	conv  units.Converter
	dump  func()
}

var _ device.Sink = (*Receiver)(nil)

// NewReceiver converts positions with conv. dump runs when DumpButton is
// pressed; it may be nil.
func NewReceiver(state *State, conv units.Converter, dump func()) *Receiver {
	return &Receiver{state: state, conv: conv, dump: dump}
}

func (r *Receiver) pose(s device.TrackerSample) Pose {
	return Pose{
		Orientation: mgl64.Quat{W: s.Quat[3], V: mgl64.Vec3{s.Quat[0], s.Quat[1], s.Quat[2]}},
		Position:    r.conv.Apply(s.Pos),
	}
}

func (r *Receiver) HeadPose(s device.TrackerSample) {
	r.state.SetHead(r.pose(s))
}

func (r *Receiver) WandPose(s device.TrackerSample) {
	r.state.SetWand(r.pose(s))
}

// Analog maps channel 0 to x and the negated channel 1 to z. Samples with
// fewer than two channels keep the previous vector.
func (r *Receiver) Analog(s device.AnalogSample) {
	if len(s.Channels) < 2 {
		return
	}
	r.state.SetAnalog(mgl64.Vec3{s.Channels[0], 0, -s.Channels[1]})
}

func (r *Receiver) Button(s device.ButtonSample) {
	if s.Button == DumpButton && s.Pressed() && r.dump != nil {
		r.dump()
	}
}
