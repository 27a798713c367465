// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) HeadPose(TrackerSample) { r.events = append(r.events, "head") }
func (r *recordingSink) WandPose(TrackerSample) { r.events = append(r.events, "wand") }
func (r *recordingSink) Button(ButtonSample)    { r.events = append(r.events, "button") }
func (r *recordingSink) Analog(AnalogSample)    { r.events = append(r.events, "analog") }

type stubConnector struct {
	tracker *TrackerChannel
	button  *ButtonChannel
	analog  *AnalogChannel

	failTracker, failButton, failAnalog bool
	opened                              []string
}

func newStubConnector() *stubConnector {
	return &stubConnector{
		tracker: NewTrackerChannel(ChannelOptions{Name: "DTrack"}),
		button:  NewButtonChannel(ChannelOptions{Name: "DTrack"}),
		analog:  NewAnalogChannel(ChannelOptions{Name: "DTrack"}),
	}
}

func (c *stubConnector) OpenTracker(name string) (TrackerRemote, error) {
	c.opened = append(c.opened, "tracker:"+name)
	if c.failTracker {
		return nil, errors.New("no tracker")
	}
	return c.tracker, nil
}

func (c *stubConnector) OpenButton(name string) (ButtonRemote, error) {
	c.opened = append(c.opened, "button:"+name)
	if c.failButton {
		return nil, errors.New("no button")
	}
	return c.button, nil
}

func (c *stubConnector) OpenAnalog(name string) (AnalogRemote, error) {
	c.opened = append(c.opened, "analog:"+name)
	if c.failAnalog {
		return nil, errors.New("no analog")
	}
	return c.analog, nil
}

func TestSessionRoutesSamples(t *testing.T) {
	conn := newStubConnector()
	sink := &recordingSink{}
	s := NewSession("DTrack@localhost", conn, Sensors{Head: 0, Wand: 1}, sink, zaptest.NewLogger(t))
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"tracker:DTrack@localhost", "button:DTrack@localhost", "analog:DTrack@localhost"}, conn.opened)
	assert.True(t, conn.tracker.isQuiet())
	assert.True(t, conn.button.isQuiet())
	assert.True(t, conn.analog.isQuiet())

	require.NoError(t, conn.analog.Push(AnalogSample{Channels: []float64{1, 2}}))
	require.NoError(t, conn.button.Push(ButtonSample{Button: 0, State: 1}))
	require.NoError(t, conn.tracker.Push(TrackerSample{Sensor: 1}))
	require.NoError(t, conn.tracker.Push(TrackerSample{Sensor: 0}))
	require.NoError(t, conn.tracker.Push(TrackerSample{Sensor: 5}))

	s.Mainloop()
	// tracker channel first, then buttons, then analog, regardless of arrival order
	assert.Equal(t, []string{"wand", "head", "button", "analog"}, sink.events)

	sink.events = nil
	s.Mainloop()
	assert.Empty(t, sink.events)
}

func TestSessionSharedSensorFeedsHeadAndWand(t *testing.T) {
	conn := newStubConnector()
	sink := &recordingSink{}
	s := NewSession("DTrack@localhost", conn, Sensors{Head: 2, Wand: 2}, sink, zaptest.NewLogger(t))
	require.NoError(t, s.Err())

	require.NoError(t, conn.tracker.Push(TrackerSample{Sensor: 2}))
	s.Mainloop()
	assert.Equal(t, []string{"head", "wand"}, sink.events)
}

func TestSessionDegraded(t *testing.T) {
	conn := newStubConnector()
	conn.failTracker = true
	conn.failAnalog = true
	sink := &recordingSink{}
	s := NewSession("DTrack", conn, Sensors{Head: 0, Wand: 1}, sink, zaptest.NewLogger(t))

	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "no tracker")
	assert.Contains(t, s.Err().Error(), "no analog")

	require.NoError(t, conn.button.Push(ButtonSample{Button: 2, State: 1}))
	assert.NotPanics(t, s.Mainloop)
	assert.Equal(t, []string{"button"}, sink.events)
	assert.NoError(t, s.Close())
}

func TestNilSession(t *testing.T) {
	var s *Session
	assert.NotPanics(t, s.Mainloop)
	assert.NoError(t, s.Close())
	assert.Error(t, s.Err())
	assert.Empty(t, s.Name())
}

func TestSessionCloseOnce(t *testing.T) {
	conn := newStubConnector()
	closes := 0
	conn.tracker = NewTrackerChannel(ChannelOptions{OnClose: func() error {
		closes++
		return nil
	}})
	s := NewSession("DTrack", conn, Sensors{Head: 0, Wand: 1}, &recordingSink{}, zaptest.NewLogger(t))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, closes)
	assert.ErrorIs(t, conn.button.Push(ButtonSample{}), ErrClosed)
}
