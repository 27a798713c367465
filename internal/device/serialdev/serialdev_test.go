// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialdev

import (
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type pipePort struct {
	*io.PipeReader
	closes *atomic.Int32
}

func (p pipePort) Write(b []byte) (int, error) { return len(b), nil }

func (p pipePort) Close() error {
	p.closes.Add(1)
	return p.PipeReader.Close()
}

func newPipeConnector(t *testing.T) (*Connector, *io.PipeWriter, *atomic.Int32, *atomic.Int32) {
	r, w := io.Pipe()
	opens, closes := &atomic.Int32{}, &atomic.Int32{}
	c := New(Options{
		PortName: "/dev/ttyTEST",
		BaudRate: 115200,
		Logger:   zaptest.NewLogger(t),
		Open: func(o serial.OpenOptions) (io.ReadWriteCloser, error) {
			opens.Add(1)
			assert.Equal(t, "/dev/ttyTEST", o.PortName)
			assert.Equal(t, uint(115200), o.BaudRate)
			return pipePort{PipeReader: r, closes: closes}, nil
		},
	})
	return c, w, opens, closes
}

func TestEncodeRoundTrip(t *testing.T) {
	line := EncodeTracker(device.TrackerSample{Sensor: 1, Quat: [4]float64{0, 0, 0, 1}, Pos: [3]float64{1.5, -2, 0.25}})
	assert.True(t, strings.HasPrefix(line, "$VRTRK,1,0,0,0,1,1.5,-2,0.25*"))

	s, err := newParser().Parse(line)
	require.NoError(t, err)
	tr, ok := s.(TrackerSentence)
	require.True(t, ok)
	assert.Equal(t, 1, tr.Sample.Sensor)
	assert.Equal(t, [3]float64{1.5, -2, 0.25}, tr.Sample.Pos)

	s, err = newParser().Parse(EncodeAnalog(device.AnalogSample{Channels: []float64{0.5, -1}}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1}, s.(AnalogSentence).Sample.Channels)

	s, err = newParser().Parse(EncodeButton(device.ButtonSample{Button: 0, State: 1}))
	require.NoError(t, err)
	assert.True(t, s.(ButtonSentence).Sample.Pressed())
}

func TestParseRejectsMalformed(t *testing.T) {
	p := newParser()
	good := EncodeButton(device.ButtonSample{Button: 2, State: 0})

	_, err := p.Parse(good[:len(good)-2] + "00")
	assert.Error(t, err, "bad checksum")

	_, err = p.Parse(encode(TypeTracker, []string{"0", "1"}))
	assert.Error(t, err, "short tracker")

	_, err = p.Parse(encode(TypeAnalog, []string{"3", "0.1"}))
	assert.Error(t, err, "channel count mismatch")

	_, err = p.Parse(encode(TypeButton, []string{"x", "1"}))
	assert.Error(t, err, "non numeric")
}

func TestIngestRoutesToOpenChannels(t *testing.T) {
	c := New(Options{Logger: zaptest.NewLogger(t)})
	tracker := device.NewTrackerChannel(device.ChannelOptions{Name: "DTrack"})
	button := device.NewButtonChannel(device.ChannelOptions{Name: "DTrack"})
	c.tracker, c.button = tracker, button

	var poses []device.TrackerSample
	var buttons []device.ButtonSample
	tracker.RegisterChangeHandler(device.AllSensors, func(s device.TrackerSample) { poses = append(poses, s) })
	button.RegisterChangeHandler(func(s device.ButtonSample) { buttons = append(buttons, s) })

	input := strings.Join([]string{
		"noise before the first sentence",
		EncodeTracker(device.TrackerSample{Sensor: 0, Quat: [4]float64{0, 0, 0, 1}, Pos: [3]float64{1, 2, 3}}),
		"$GPRMC,bogus*00",
		EncodeButton(device.ButtonSample{Button: 0, State: 1}),
		EncodeAnalog(device.AnalogSample{Channels: []float64{1, 1}}), // no analog channel open
		"",
	}, "\r\n")
	require.NoError(t, c.ingest(strings.NewReader(input)))

	tracker.Mainloop()
	button.Mainloop()
	require.Len(t, poses, 1)
	assert.Equal(t, [3]float64{1, 2, 3}, poses[0].Pos)
	require.Len(t, buttons, 1)
	assert.True(t, buttons[0].Pressed())
}

func TestConnectorSharesPort(t *testing.T) {
	c, w, opens, closes := newPipeConnector(t)

	tracker, err := c.OpenTracker("DTrack@localhost")
	require.NoError(t, err)
	button, err := c.OpenButton("DTrack@localhost")
	require.NoError(t, err)
	analog, err := c.OpenAnalog("DTrack@localhost")
	require.NoError(t, err)
	assert.Equal(t, int32(1), opens.Load())

	_, err = c.OpenTracker("DTrack@localhost")
	assert.Error(t, err, "second tracker channel")

	var got atomic.Int32
	tracker.RegisterChangeHandler(0, func(device.TrackerSample) { got.Add(1) })
	go func() {
		_, _ = io.WriteString(w, EncodeTracker(device.TrackerSample{Sensor: 0, Quat: [4]float64{0, 0, 0, 1}})+"\r\n")
	}()
	require.Eventually(t, func() bool {
		tracker.Mainloop()
		return got.Load() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, button.Close())
	require.NoError(t, analog.Close())
	assert.Equal(t, int32(0), closes.Load())
	require.NoError(t, tracker.Close())
	assert.Equal(t, int32(1), closes.Load())
	require.NoError(t, w.Close())
}

func TestConnectorOpenFailure(t *testing.T) {
	c := New(Options{
		PortName: "/dev/missing",
		Open: func(serial.OpenOptions) (io.ReadWriteCloser, error) {
			return nil, errors.New("no such device")
		},
	})
	_, err := c.OpenTracker("DTrack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/missing")

	_, err = c.OpenButton("@nohost")
	assert.Error(t, err)
}
