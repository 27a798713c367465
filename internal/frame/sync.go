// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frame drives one tracker-to-view cycle per idle call.
package frame

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

// Pump delivers pending device samples. device.Session implements it.
type Pump interface {
	Mainloop()
}

// Viewer is the part of the scene manager a cycle drives.
// render.Manager implements it.
type Viewer interface {
	SetUserTransform(pos mgl64.Vec3, q mgl64.Quat)
	Translation() mgl64.Vec3
	SetTranslation(t mgl64.Vec3)
	CommitChanges()
	Redraw()
	ClearChanges()
}

// Synchronizer applies the tracked state to the viewer once per frame.
type Synchronizer struct {
	pump   Pump
	state  *tracking.State
	viewer Viewer
	speed  float64

	cycles  uint64
	running bool
}

// New returns a synchronizer moving the world by speed*analog every cycle.
func New(pump Pump, state *tracking.State, viewer Viewer, speed float64) *Synchronizer {
	return &Synchronizer{pump: pump, state: state, viewer: viewer, speed: speed}
}

// Step runs one cycle: pump, place the head, integrate the analog stick,
// commit, redraw, clear the change list. A call made from inside a cycle
// (a handler calling back into Step) is ignored.
func (s *Synchronizer) Step() {
	if s.running {
		return
	}
	s.running = true
	defer func() { s.running = false }()

	s.pump.Mainloop()

	head := s.state.Head()
	s.viewer.SetUserTransform(head.Position, head.Orientation)
	s.viewer.SetTranslation(s.viewer.Translation().Add(s.state.Analog().Mul(s.speed)))

	s.viewer.CommitChanges()
	s.viewer.Redraw()
	s.viewer.ClearChanges()
	s.cycles++
}

// Cycles counts completed Steps.
func (s *Synchronizer) Cycles() uint64 {
	return s.cycles
}
