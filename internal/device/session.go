// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Sink receives samples routed by a Session, one method per sample kind.
type Sink interface {
	HeadPose(TrackerSample)
	WandPose(TrackerSample)
	Button(ButtonSample)
	Analog(AnalogSample)
}

// Connector opens the three channels of a logical device.
type Connector interface {
	OpenTracker(name string) (TrackerRemote, error)
	OpenButton(name string) (ButtonRemote, error)
	OpenAnalog(name string) (AnalogRemote, error)
}

// Sensors names the tracker sensor indices of the tracked bodies.
type Sensors struct {
	Head int
	Wand int
}

// Session owns the tracker, button and analog channels of one device.
// A channel that failed to open stays nil and is skipped by Mainloop and
// Close. All methods are safe on a nil *Session.
type Session struct {
	name    string
	tracker TrackerRemote
	button  ButtonRemote
	analog  AnalogRemote
	err     error
	logger  *zap.Logger

	closeOnce sync.Once
}

// NewSession opens all three channels of name and routes their samples to
// sink. Open failures are logged and recorded in Err, never returned.
func NewSession(name string, conn Connector, sensors Sensors, sink Sink, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{name: name, logger: logger}

	var errs []error
	if tracker, err := conn.OpenTracker(name); err != nil {
		errs = append(errs, fmt.Errorf("tracker: %w", err))
	} else {
		tracker.SetQuiet(true)
		tracker.RegisterChangeHandler(sensors.Head, sink.HeadPose)
		tracker.RegisterChangeHandler(sensors.Wand, sink.WandPose)
		s.tracker = tracker
	}

	if button, err := conn.OpenButton(name); err != nil {
		errs = append(errs, fmt.Errorf("button: %w", err))
	} else {
		button.SetQuiet(true)
		button.RegisterChangeHandler(sink.Button)
		s.button = button
	}

	if analog, err := conn.OpenAnalog(name); err != nil {
		errs = append(errs, fmt.Errorf("analog: %w", err))
	} else {
		analog.SetQuiet(true)
		analog.RegisterChangeHandler(sink.Analog)
		s.analog = analog
	}

	s.err = errors.Join(errs...)
	if s.err != nil {
		logger.Error("device: session degraded", zap.String("device", name), zap.Error(s.err))
	} else {
		logger.Info("device: session open", zap.String("device", name),
			zap.Int("head_sensor", sensors.Head), zap.Int("wand_sensor", sensors.Wand))
	}
	return s
}

// Name returns the logical device name.
func (s *Session) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Err returns the channel open failures, if any.
func (s *Session) Err() error {
	if s == nil {
		return errors.New("device: no session")
	}
	return s.err
}

// Mainloop pumps the tracker, button and analog channels once, in that order.
func (s *Session) Mainloop() {
	if s == nil {
		return
	}
	if s.tracker != nil {
		s.tracker.Mainloop()
	}
	if s.button != nil {
		s.button.Mainloop()
	}
	if s.analog != nil {
		s.analog.Mainloop()
	}
}

// Close releases every open channel. Only the first call has an effect.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	s.closeOnce.Do(func() {
		for _, r := range []Remote{s.tracker, s.button, s.analog} {
			if r == nil {
				continue
			}
			if err := r.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.logger.Info("device: session closed", zap.String("device", s.name))
	})
	return errors.Join(errs...)
}
