// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package simdev is an in-process device: channels are plain queues that a
// Motion generator, or a test, pushes samples into.
package simdev

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

// ErrUnavailable is returned by Open calls marked to fail.
var ErrUnavailable = errors.New("sim: device unavailable")

// Options configure a Connector.
type Options struct {
	QueueLimit int
	Logger     *zap.Logger
	// FailTracker, FailButton and FailAnalog make the matching Open fail.
	FailTracker bool
	FailButton  bool
	FailAnalog  bool
}

// Connector hands out in-memory channels and keeps them for Run and tests.
type Connector struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	tracker *device.TrackerChannel
	button  *device.ButtonChannel
	analog  *device.AnalogChannel
}

var _ device.Connector = (*Connector)(nil)

func New(opts Options) *Connector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{opts: opts, logger: logger}
}

func (c *Connector) channelOptions(name string) device.ChannelOptions {
	return device.ChannelOptions{Name: name, QueueLimit: c.opts.QueueLimit, Logger: c.logger}
}

func (c *Connector) OpenTracker(name string) (device.TrackerRemote, error) {
	if _, err := device.ParseAddress(name); err != nil {
		return nil, err
	}
	if c.opts.FailTracker {
		return nil, ErrUnavailable
	}
	ch := device.NewTrackerChannel(c.channelOptions(name))
	c.mu.Lock()
	c.tracker = ch
	c.mu.Unlock()
	return ch, nil
}

func (c *Connector) OpenButton(name string) (device.ButtonRemote, error) {
	if _, err := device.ParseAddress(name); err != nil {
		return nil, err
	}
	if c.opts.FailButton {
		return nil, ErrUnavailable
	}
	ch := device.NewButtonChannel(c.channelOptions(name))
	c.mu.Lock()
	c.button = ch
	c.mu.Unlock()
	return ch, nil
}

func (c *Connector) OpenAnalog(name string) (device.AnalogRemote, error) {
	if _, err := device.ParseAddress(name); err != nil {
		return nil, err
	}
	if c.opts.FailAnalog {
		return nil, ErrUnavailable
	}
	ch := device.NewAnalogChannel(c.channelOptions(name))
	c.mu.Lock()
	c.analog = ch
	c.mu.Unlock()
	return ch, nil
}

// PushTracker queues s on the open tracker channel.
func (c *Connector) PushTracker(s device.TrackerSample) error {
	c.mu.Lock()
	ch := c.tracker
	c.mu.Unlock()
	if ch == nil {
		return ErrUnavailable
	}
	return ch.Push(s)
}

// PushButton queues s on the open button channel.
func (c *Connector) PushButton(s device.ButtonSample) error {
	c.mu.Lock()
	ch := c.button
	c.mu.Unlock()
	if ch == nil {
		return ErrUnavailable
	}
	return ch.Push(s)
}

// PushAnalog queues s on the open analog channel.
func (c *Connector) PushAnalog(s device.AnalogSample) error {
	c.mu.Lock()
	ch := c.analog
	c.mu.Unlock()
	if ch == nil {
		return ErrUnavailable
	}
	return ch.Push(s)
}

// Run pushes m's samples every interval until ctx is done or the channels
// are closed.
func (c *Connector) Run(ctx context.Context, m Motion, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	c.logger.Info("sim: motion started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			head, wand, analog := m.At(now.Sub(start).Seconds())
			err := errors.Join(c.PushTracker(head), c.PushTracker(wand), c.PushAnalog(analog))
			if errors.Is(err, device.ErrClosed) {
				c.logger.Info("sim: device closed, motion stopped")
				return nil
			}
		}
	}
}
