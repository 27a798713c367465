// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/cave_tracker/internal/device"
	"github.com/relabs-tech/cave_tracker/internal/units"
)

type channels struct {
	tracker *device.TrackerChannel
	button  *device.ButtonChannel
	analog  *device.AnalogChannel
}

func (c channels) OpenTracker(string) (device.TrackerRemote, error) { return c.tracker, nil }
func (c channels) OpenButton(string) (device.ButtonRemote, error)   { return c.button, nil }
func (c channels) OpenAnalog(string) (device.AnalogRemote, error)   { return c.analog, nil }

func newChannels() channels {
	return channels{
		tracker: device.NewTrackerChannel(device.ChannelOptions{}),
		button:  device.NewButtonChannel(device.ChannelOptions{}),
		analog:  device.NewAnalogChannel(device.ChannelOptions{}),
	}
}

func TestHeadSampleIsConverted(t *testing.T) {
	state := NewState()
	ch := newChannels()
	r := NewReceiver(state, units.FixedConverter(2), nil)
	s := device.NewSession("DTrack@localhost", ch, device.Sensors{Head: 0, Wand: 1}, r, zaptest.NewLogger(t))
	defer s.Close()

	require.NoError(t, ch.tracker.Push(device.TrackerSample{Sensor: 0, Quat: [4]float64{0, 0, 0, 1}, Pos: [3]float64{100, 0, 0}}))
	s.Mainloop()

	head := state.Head()
	assert.Equal(t, mgl64.QuatIdent(), head.Orientation)
	assert.Equal(t, mgl64.Vec3{200, 0, 0}, head.Position)
	// the wand is untouched by a head sample
	assert.Equal(t, mgl64.Vec3{}, state.Wand().Position)
}

func TestWandSampleUsesConfiguredUnits(t *testing.T) {
	state := NewState()
	r := NewReceiver(state, units.NewConverter(units.Meters, units.Centimeters), nil)

	r.WandPose(device.TrackerSample{Sensor: 1, Quat: [4]float64{0, 1, 0, 0}, Pos: [3]float64{0.5, 1.25, -2}})

	wand := state.Wand()
	assert.Equal(t, mgl64.Quat{W: 0, V: mgl64.Vec3{0, 1, 0}}, wand.Orientation)
	assert.InDelta(t, 50, wand.Position.X(), 1e-9)
	assert.InDelta(t, 125, wand.Position.Y(), 1e-9)
	assert.InDelta(t, -200, wand.Position.Z(), 1e-9)
	assert.Equal(t, InitialHeadPose(), state.Head())
}

func TestAnalogMapping(t *testing.T) {
	state := NewState()
	r := NewReceiver(state, units.FixedConverter(1), nil)

	r.Analog(device.AnalogSample{Channels: []float64{0.5, -0.3}})
	assert.Equal(t, mgl64.Vec3{0.5, 0, 0.3}, state.Analog())

	r.Analog(device.AnalogSample{Channels: []float64{-1, 1, 0.7}})
	assert.Equal(t, mgl64.Vec3{-1, 0, -1}, state.Analog())
}

func TestAnalogKeepsStaleValue(t *testing.T) {
	state := NewState()
	r := NewReceiver(state, units.FixedConverter(1), nil)
	r.Analog(device.AnalogSample{Channels: []float64{0.25, 0.75}})
	before := state.Analog()

	for _, ch := range [][]float64{nil, {}, {0.9}} {
		r.Analog(device.AnalogSample{Channels: ch})
		assert.Equal(t, before, state.Analog())
	}
}

func TestButtonDump(t *testing.T) {
	dumps := 0
	r := NewReceiver(NewState(), units.FixedConverter(1), func() { dumps++ })

	r.Button(device.ButtonSample{Button: 0, State: 1})
	assert.Equal(t, 1, dumps)

	r.Button(device.ButtonSample{Button: 0, State: 0})
	r.Button(device.ButtonSample{Button: 1, State: 1})
	r.Button(device.ButtonSample{Button: 3, State: 0})
	assert.Equal(t, 1, dumps)

	assert.NotPanics(t, func() {
		NewReceiver(NewState(), units.FixedConverter(1), nil).Button(device.ButtonSample{Button: 0, State: 1})
	})
}

func TestButtonDumpThroughSession(t *testing.T) {
	state := NewState()
	var out bytes.Buffer
	ch := newChannels()
	r := NewReceiver(state, units.FixedConverter(1), func() { state.Print(&out) })
	s := device.NewSession("DTrack", ch, device.Sensors{Head: 0, Wand: 1}, r, zaptest.NewLogger(t))

	require.NoError(t, ch.button.Push(device.ButtonSample{Button: 0, State: 1}))
	require.NoError(t, ch.button.Push(device.ButtonSample{Button: 2, State: 1}))
	s.Mainloop()

	assert.Equal(t, 1, strings.Count(out.String(), "Head position:"))
}

func TestPumpWithoutSamplesLeavesState(t *testing.T) {
	state := NewState()
	ch := newChannels()
	r := NewReceiver(state, units.FixedConverter(3), nil)
	s := device.NewSession("DTrack", ch, device.Sensors{Head: 0, Wand: 1}, r, zaptest.NewLogger(t))

	require.NoError(t, ch.analog.Push(device.AnalogSample{Channels: []float64{1, 1}}))
	require.NoError(t, ch.tracker.Push(device.TrackerSample{Sensor: 1, Quat: [4]float64{0, 0, 0, 1}, Pos: [3]float64{1, 2, 3}}))
	s.Mainloop()
	before := *state

	for i := 0; i < 5; i++ {
		s.Mainloop()
	}
	assert.Equal(t, before, *state)
}

func TestPrintOrder(t *testing.T) {
	state := NewState()
	state.SetHead(Pose{Orientation: mgl64.QuatIdent(), Position: mgl64.Vec3{200, 0, -0.0}})
	state.SetWand(Pose{Orientation: mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.5, 0.5, 0.5}}, Position: mgl64.Vec3{1, 2.5, 3}})
	state.SetAnalog(mgl64.Vec3{0.5, 0, 0.3})

	var out bytes.Buffer
	state.Print(&out)

	assert.Equal(t,
		"Head position: 200, 0, 0 orientation: 0, 0, 0, 1\n"+
			"Wand position: 1, 2.5, 3 orientation: 0.5, 0.5, 0.5, 0.5\n"+
			"Analog: 0.5, 0, 0.3\n",
		out.String())
}

func TestPrintKeepsNegativeZero(t *testing.T) {
	state := NewState()
	r := NewReceiver(state, units.FixedConverter(1), nil)
	r.Analog(device.AnalogSample{Channels: []float64{0.5, 0}})

	var out bytes.Buffer
	state.Print(&out)
	assert.True(t, strings.HasSuffix(out.String(), "Analog: 0.5, 0, -0\n"), out.String())
}

func TestSnapshotRoundTrip(t *testing.T) {
	state := NewState()
	state.SetAnalog(mgl64.Vec3{1, 0, -1})
	snap := state.Snapshot()

	assert.Equal(t, [3]float64{1, 0, -1}, snap.Analog)
	assert.Equal(t, *state, *snap.State())

	var latest Latest
	_, ok := latest.Load()
	assert.False(t, ok)
	latest.Store(snap)
	got, ok := latest.Load()
	assert.True(t, ok)
	assert.Equal(t, snap, got)
}
