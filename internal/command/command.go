// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package command maps keyboard keys to view and pose changes.
package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/config"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

// ErrQuit is returned by Key after the quit key has torn everything down.
var ErrQuit = errors.New("command: quit")

// KeyEscape is the ESC character.
const KeyEscape rune = 27

// Step is how far one key press moves the head.
const Step = 2.0

// Bounds limits manual head movement, in renderer units.
type Bounds struct {
	Min, Max mgl64.Vec3
}

// DefaultBounds keeps the head inside the tracked volume.
var DefaultBounds = Bounds{
	Min: mgl64.Vec3{-133, -2, -133},
	Max: mgl64.Vec3{133, 270, 133},
}

// rotateStep is added to the head orientation by u and j.
const rotateStep = 3.141

// EyeControl is the eye separation of the scene manager.
type EyeControl interface {
	EyeSeparation() float64
	SetEyeSeparation(d float64)
}

// Interpreter handles one key at a time on the frame goroutine.
type Interpreter struct {
	state    *tracking.State
	eyes     EyeControl
	cfg      *config.Config
	bounds   Bounds
	out      io.Writer
	teardown func()
	logger   *zap.Logger
}

// New returns an interpreter printing to out. teardown runs once the quit
// key is pressed, before Key returns ErrQuit.
func New(state *tracking.State, eyes EyeControl, cfg *config.Config, bounds Bounds, out io.Writer, teardown func(), logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		state:    state,
		eyes:     eyes,
		cfg:      cfg,
		bounds:   bounds,
		out:      out,
		teardown: teardown,
		logger:   logger,
	}
}

// Dump prints the head, wand and analog state.
func (i *Interpreter) Dump() {
	i.state.Print(i.out)
}

// Key applies one key. Unknown keys are reported and ignored.
func (i *Interpreter) Key(k rune) error {
	switch k {
	case 'q', KeyEscape:
		i.logger.Info("command: quit requested")
		if i.teardown != nil {
			i.teardown()
		}
		return ErrQuit
	case 'w':
		i.move(1, +1)
	case 's':
		i.move(1, -1)
	case 'r':
		i.move(2, -1)
	case 'f':
		i.move(2, +1)
	case 'a':
		i.move(0, -1)
	case 'd':
		i.move(0, +1)
	case 'u':
		i.rotate(+1)
	case 'j':
		i.rotate(-1)
	case 'h', 'k':
		// reserved
	case 'e':
		i.scaleEyes(0.9)
	case 'E':
		i.scaleEyes(1.1)
	case 't':
		i.cfg.FollowHead = !i.cfg.FollowHead
		fmt.Fprintf(i.out, "following head: %t\n", i.cfg.FollowHead)
	case 'i':
		i.Dump()
	default:
		fmt.Fprintf(i.out, "Key '%c' ignored\n", k)
		i.logger.Debug("command: key ignored", zap.Int32("key", k))
	}
	return nil
}

// move steps one head axis while it is inside the bounds and clamps the
// result. Tracked positions outside the bounds are left alone.
func (i *Interpreter) move(axis int, dir float64) {
	head := i.state.Head()
	v := head.Position[axis]
	if dir > 0 {
		limit := i.bounds.Max[axis]
		if v >= limit {
			return
		}
		v = min(v+Step, limit)
	} else {
		limit := i.bounds.Min[axis]
		if v <= limit {
			return
		}
		v = max(v-Step, limit)
	}
	head.Position[axis] = v
	i.state.SetHead(head)
}

// rotate adds the rotateStep quaternion about the unit x axis, signed by x,
// and renormalizes.
func (i *Interpreter) rotate(x float64) {
	head := i.state.Head()
	q := head.Orientation.Add(mgl64.QuatRotate(rotateStep, mgl64.Vec3{x, 0, 0}))
	if q.Len() == 0 {
		return
	}
	head.Orientation = q.Normalize()
	i.state.SetHead(head)
}

// scaleEyes has no floor or ceiling.
func (i *Interpreter) scaleEyes(f float64) {
	d := i.eyes.EyeSeparation() * f
	fmt.Fprintf(i.out, "Eye distance: %g\n", d)
	i.eyes.SetEyeSeparation(d)
}
