// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when a channel is used after Close.
var ErrClosed = errors.New("device: channel closed")

// Remote is the part shared by the tracker, button and analog channels.
type Remote interface {
	// Mainloop delivers every pending sample to the registered handlers on
	// the calling goroutine. It never blocks.
	Mainloop()
	// SetQuiet turns per-sample debug logging off.
	SetQuiet(quiet bool)
	Close() error
}

// TrackerRemote delivers pose samples, filtered by sensor index.
type TrackerRemote interface {
	Remote
	RegisterChangeHandler(sensor int, h TrackerHandler)
}

// ButtonRemote delivers button transitions.
type ButtonRemote interface {
	Remote
	RegisterChangeHandler(h ButtonHandler)
}

// AnalogRemote delivers analog channel updates.
type AnalogRemote interface {
	Remote
	RegisterChangeHandler(h AnalogHandler)
}

// ChannelOptions configure a channel built by a transport.
type ChannelOptions struct {
	Name       string
	QueueLimit int
	Logger     *zap.Logger
	// OnClose releases the transport resources behind the channel.
	OnClose func() error
}

// base holds the queue and lifecycle shared by every channel kind.
type base[T any] struct {
	name    string
	q       *queue[T]
	logger  *zap.Logger
	onClose func() error

	mu        sync.Mutex
	quiet     bool
	closeOnce sync.Once
	closeErr  error
}

func (b *base[T]) init(kind string, opts ChannelOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b.name = opts.Name
	b.q = newQueue[T](opts.QueueLimit)
	b.logger = logger.With(zap.String("channel", kind), zap.String("device", opts.Name))
	b.onClose = opts.OnClose
}

// Push queues a sample for the next Mainloop. Safe for concurrent use.
func (b *base[T]) Push(s T) error {
	if !b.q.push(s) {
		return ErrClosed
	}
	return nil
}

// Name returns the logical device name the channel was opened for.
func (b *base[T]) Name() string {
	return b.name
}

// Dropped counts samples discarded because the queue was full.
func (b *base[T]) Dropped() uint64 {
	return b.q.droppedCount()
}

func (b *base[T]) SetQuiet(quiet bool) {
	b.mu.Lock()
	b.quiet = quiet
	b.mu.Unlock()
}

func (b *base[T]) isQuiet() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quiet
}

func (b *base[T]) Close() error {
	b.closeOnce.Do(func() {
		b.q.close()
		if b.onClose != nil {
			b.closeErr = b.onClose()
		}
	})
	return b.closeErr
}

func (b *base[T]) pending() []T {
	samples := b.q.drain()
	if len(samples) > 0 && !b.isQuiet() {
		b.logger.Debug("device: delivering samples", zap.Int("count", len(samples)))
	}
	return samples
}

// TrackerChannel is the TrackerRemote used by every transport.
type TrackerChannel struct {
	base[TrackerSample]
	handlers map[int][]TrackerHandler
}

// NewTrackerChannel creates an empty tracker channel.
func NewTrackerChannel(opts ChannelOptions) *TrackerChannel {
	c := &TrackerChannel{handlers: make(map[int][]TrackerHandler)}
	c.init("tracker", opts)
	return c
}

// RegisterChangeHandler adds h for one sensor, or for all with AllSensors.
// Handlers must be registered from the goroutine that calls Mainloop.
func (c *TrackerChannel) RegisterChangeHandler(sensor int, h TrackerHandler) {
	c.handlers[sensor] = append(c.handlers[sensor], h)
}

func (c *TrackerChannel) Mainloop() {
	for _, s := range c.pending() {
		for _, h := range c.handlers[s.Sensor] {
			h(s)
		}
		if s.Sensor != AllSensors {
			for _, h := range c.handlers[AllSensors] {
				h(s)
			}
		}
	}
}

// ButtonChannel is the ButtonRemote used by every transport.
type ButtonChannel struct {
	base[ButtonSample]
	handlers []ButtonHandler
}

// NewButtonChannel creates an empty button channel.
func NewButtonChannel(opts ChannelOptions) *ButtonChannel {
	c := &ButtonChannel{}
	c.init("button", opts)
	return c
}

func (c *ButtonChannel) RegisterChangeHandler(h ButtonHandler) {
	c.handlers = append(c.handlers, h)
}

func (c *ButtonChannel) Mainloop() {
	for _, s := range c.pending() {
		for _, h := range c.handlers {
			h(s)
		}
	}
}

// AnalogChannel is the AnalogRemote used by every transport.
type AnalogChannel struct {
	base[AnalogSample]
	handlers []AnalogHandler
}

// NewAnalogChannel creates an empty analog channel.
func NewAnalogChannel(opts ChannelOptions) *AnalogChannel {
	c := &AnalogChannel{}
	c.init("analog", opts)
	return c
}

func (c *AnalogChannel) RegisterChangeHandler(h AnalogHandler) {
	c.handlers = append(c.handlers, h)
}

func (c *AnalogChannel) Mainloop() {
	for _, s := range c.pending() {
		for _, h := range c.handlers {
			h(s)
		}
	}
}
