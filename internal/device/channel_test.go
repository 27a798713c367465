// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTrackerChannelRoutesBySensor(t *testing.T) {
	c := NewTrackerChannel(ChannelOptions{Name: "DTrack", Logger: zaptest.NewLogger(t)})
	var head, wand, all []TrackerSample
	c.RegisterChangeHandler(0, func(s TrackerSample) { head = append(head, s) })
	c.RegisterChangeHandler(1, func(s TrackerSample) { wand = append(wand, s) })
	c.RegisterChangeHandler(AllSensors, func(s TrackerSample) { all = append(all, s) })

	require.NoError(t, c.Push(TrackerSample{Sensor: 0, Pos: [3]float64{1, 2, 3}}))
	require.NoError(t, c.Push(TrackerSample{Sensor: 1}))
	require.NoError(t, c.Push(TrackerSample{Sensor: 7}))

	// nothing is delivered before the pump
	assert.Empty(t, head)
	assert.Empty(t, all)

	c.Mainloop()
	require.Len(t, head, 1)
	assert.Equal(t, [3]float64{1, 2, 3}, head[0].Pos)
	assert.Len(t, wand, 1)
	assert.Len(t, all, 3)

	// a second pump with nothing pending delivers nothing
	c.Mainloop()
	assert.Len(t, head, 1)
	assert.Len(t, all, 3)
}

func TestChannelQueueDropsOldest(t *testing.T) {
	c := NewAnalogChannel(ChannelOptions{QueueLimit: 2})
	var got []float64
	c.RegisterChangeHandler(func(s AnalogSample) { got = append(got, s.Channels[0]) })

	for i := 1; i <= 4; i++ {
		require.NoError(t, c.Push(AnalogSample{Channels: []float64{float64(i)}}))
	}
	c.Mainloop()

	assert.Equal(t, []float64{3, 4}, got)
	assert.Equal(t, uint64(2), c.Dropped())
}

func TestChannelPushFromManyGoroutines(t *testing.T) {
	c := NewButtonChannel(ChannelOptions{QueueLimit: 1000})
	count := 0
	c.RegisterChangeHandler(func(ButtonSample) { count++ })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Push(ButtonSample{Button: j})
			}
		}()
	}
	wg.Wait()
	c.Mainloop()
	assert.Equal(t, 500, count)
}

func TestChannelCloseOnce(t *testing.T) {
	calls := 0
	c := NewButtonChannel(ChannelOptions{OnClose: func() error {
		calls++
		return errors.New("boom")
	}})
	delivered := 0
	c.RegisterChangeHandler(func(ButtonSample) { delivered++ })
	require.NoError(t, c.Push(ButtonSample{}))

	assert.EqualError(t, c.Close(), "boom")
	assert.EqualError(t, c.Close(), "boom")
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, c.Push(ButtonSample{}), ErrClosed)
	c.Mainloop()
	assert.Zero(t, delivered)
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("DTrack@localhost")
	require.NoError(t, err)
	assert.Equal(t, Address{Device: "DTrack", Host: "localhost"}, a)
	assert.Equal(t, "DTrack@localhost", a.String())

	a, err = ParseAddress("Wand")
	require.NoError(t, err)
	assert.Equal(t, "localhost", a.Host)

	_, err = ParseAddress("@host")
	assert.Error(t, err)
	_, err = ParseAddress("Tracker@")
	assert.Error(t, err)
}
