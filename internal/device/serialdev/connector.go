// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package serialdev reads tracker, button and analog samples from a serial
// line carrying NMEA-framed sentences.
package serialdev

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

const closeWait = time.Second

// Options configure a Connector.
type Options struct {
	PortName   string
	BaudRate   uint
	QueueLimit int
	Logger     *zap.Logger
	// Open replaces serial.Open, mainly for tests.
	Open func(serial.OpenOptions) (io.ReadWriteCloser, error)
}

// Connector shares one serial port between the channels of a device. The
// port opens with the first channel and closes with the last one.
type Connector struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	port    io.ReadWriteCloser
	done    chan struct{}
	open    int
	tracker *device.TrackerChannel
	button  *device.ButtonChannel
	analog  *device.AnalogChannel
}

var _ device.Connector = (*Connector)(nil)

// New returns a Connector for opts.PortName. Nothing is opened yet.
func New(opts Options) *Connector {
	if opts.Open == nil {
		opts.Open = serial.Open
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{opts: opts, logger: logger.With(zap.String("port", opts.PortName))}
}

func (c *Connector) serialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              c.opts.PortName,
		BaudRate:              c.opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}

// acquire opens the port if needed. Must be called with c.mu held.
func (c *Connector) acquire(name string) error {
	if _, err := device.ParseAddress(name); err != nil {
		return err
	}
	if c.port == nil {
		port, err := c.opts.Open(c.serialOptions())
		if err != nil {
			return fmt.Errorf("open serial port %s: %w", c.opts.PortName, err)
		}
		c.port = port
		c.done = make(chan struct{})
		go c.readLoop(port, c.done)
		c.logger.Info("serial: port opened", zap.Uint("baud", c.opts.BaudRate))
	}
	c.open++
	return nil
}

func (c *Connector) release(clear func()) error {
	c.mu.Lock()
	clear()
	c.open--
	if c.open > 0 {
		c.mu.Unlock()
		return nil
	}
	port, done := c.port, c.done
	c.port, c.done = nil, nil
	c.mu.Unlock()

	err := port.Close()
	select {
	case <-done:
	case <-time.After(closeWait):
		c.logger.Warn("serial: reader did not stop after close")
	}
	c.logger.Info("serial: port closed")
	return err
}

func (c *Connector) OpenTracker(name string) (device.TrackerRemote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker != nil {
		return nil, errors.New("serial: tracker channel already open")
	}
	if err := c.acquire(name); err != nil {
		return nil, err
	}
	var ch *device.TrackerChannel
	ch = device.NewTrackerChannel(c.channelOptions(name, func() error {
		return c.release(func() {
			if c.tracker == ch {
				c.tracker = nil
			}
		})
	}))
	c.tracker = ch
	return ch, nil
}

func (c *Connector) OpenButton(name string) (device.ButtonRemote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.button != nil {
		return nil, errors.New("serial: button channel already open")
	}
	if err := c.acquire(name); err != nil {
		return nil, err
	}
	var ch *device.ButtonChannel
	ch = device.NewButtonChannel(c.channelOptions(name, func() error {
		return c.release(func() {
			if c.button == ch {
				c.button = nil
			}
		})
	}))
	c.button = ch
	return ch, nil
}

func (c *Connector) OpenAnalog(name string) (device.AnalogRemote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analog != nil {
		return nil, errors.New("serial: analog channel already open")
	}
	if err := c.acquire(name); err != nil {
		return nil, err
	}
	var ch *device.AnalogChannel
	ch = device.NewAnalogChannel(c.channelOptions(name, func() error {
		return c.release(func() {
			if c.analog == ch {
				c.analog = nil
			}
		})
	}))
	c.analog = ch
	return ch, nil
}

func (c *Connector) channelOptions(name string, onClose func() error) device.ChannelOptions {
	return device.ChannelOptions{
		Name:       name,
		QueueLimit: c.opts.QueueLimit,
		Logger:     c.logger,
		OnClose:    onClose,
	}
}

func (c *Connector) readLoop(r io.Reader, done chan struct{}) {
	defer close(done)
	if err := c.ingest(r); err != nil {
		c.logger.Warn("serial: read stopped", zap.Error(err))
	}
}

// ingest parses sentences from r until EOF or a read error and routes
// them to the open channels.
func (c *Connector) ingest(r io.Reader) error {
	parser := newParser()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		sentence, err := parser.Parse(line)
		if err != nil {
			c.logger.Debug("serial: skipping sentence", zap.String("line", line), zap.Error(err))
			continue
		}
		c.route(sentence)
	}
	err := scanner.Err()
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func (c *Connector) route(sentence any) {
	c.mu.Lock()
	tracker, button, analog := c.tracker, c.button, c.analog
	c.mu.Unlock()

	switch s := sentence.(type) {
	case TrackerSentence:
		if tracker != nil {
			_ = tracker.Push(s.Sample)
		}
	case ButtonSentence:
		if button != nil {
			_ = button.Push(s.Sample)
		}
	case AnalogSentence:
		if analog != nil {
			_ = analog.Push(s.Sample)
		}
	default:
		c.logger.Debug("serial: ignoring sentence", zap.String("type", fmt.Sprintf("%T", s)))
	}
}
