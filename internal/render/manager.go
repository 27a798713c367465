// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render is the scene manager the frame loop drives: it stages view
// mutations, commits them and hands finished frames to a Presenter.
package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/config"
	"github.com/relabs-tech/cave_tracker/internal/scene"
)

// View is the renderer-visible state.
type View struct {
	HeadPosition    mgl64.Vec3
	HeadOrientation mgl64.Quat
	Translation     mgl64.Vec3
	EyeSeparation   float64
	Root            *scene.Node
	Width, Height   int
	// Extent is the box ShowAll fitted the view to.
	ExtentLo, ExtentHi mgl64.Vec3
}

// Frame is one redraw request.
type Frame struct {
	Number     uint64
	View       View
	FollowHead bool
	// Viewer is the eye midpoint actually used for projection.
	Viewer            mgl64.Vec3
	Orientation       mgl64.Quat
	LeftEye, RightEye mgl64.Vec3
	Cave              mgl64.Vec3 // width, height, depth
}

// Presenter shows frames. Present is called on the frame goroutine.
type Presenter interface {
	Present(Frame)
}

// Manager is the CAVE scene manager.
type Manager struct {
	cfg       *config.Config
	presenter Presenter
	logger    *zap.Logger

	staged  View
	visible View
	changes ChangeList
	frames  uint64

	closeOnce sync.Once
	closed    bool
}

// NewManager reads FollowHead from cfg on every redraw, so toggling it takes
// effect on the next frame.
func NewManager(cfg *config.Config, presenter Presenter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	initial := View{
		HeadOrientation: mgl64.QuatIdent(),
		EyeSeparation:   cfg.EyeSeparation,
		Width:           cfg.WindowWidth,
		Height:          cfg.WindowHeight,
	}
	return &Manager{
		cfg:       cfg,
		presenter: presenter,
		logger:    logger,
		staged:    initial,
		visible:   initial,
	}
}

// SetUserTransform places the tracked head. The orientation is normalized.
func (m *Manager) SetUserTransform(pos mgl64.Vec3, q mgl64.Quat) {
	if q.Len() > 0 {
		q = q.Normalize()
	} else {
		q = mgl64.QuatIdent()
	}
	m.staged.HeadPosition, m.staged.HeadOrientation = pos, q
	m.changes.record(Change{Kind: ChangeUserTransform, apply: func(v *View) {
		v.HeadPosition, v.HeadOrientation = pos, q
	}})
}

// Translation returns the staged world translation.
func (m *Manager) Translation() mgl64.Vec3 {
	return m.staged.Translation
}

func (m *Manager) SetTranslation(t mgl64.Vec3) {
	m.staged.Translation = t
	m.changes.record(Change{Kind: ChangeTranslation, apply: func(v *View) { v.Translation = t }})
}

func (m *Manager) EyeSeparation() float64 {
	return m.staged.EyeSeparation
}

func (m *Manager) SetEyeSeparation(d float64) {
	m.staged.EyeSeparation = d
	m.changes.record(Change{Kind: ChangeEyeSeparation, apply: func(v *View) { v.EyeSeparation = d }})
}

// SetRoot replaces the scene.
func (m *Manager) SetRoot(root *scene.Node) {
	m.staged.Root = root
	m.changes.record(Change{Kind: ChangeRoot, apply: func(v *View) { v.Root = root }})
}

// Resize sets the navigation window size.
func (m *Manager) Resize(w, h int) {
	if w == m.staged.Width && h == m.staged.Height {
		return
	}
	m.staged.Width, m.staged.Height = w, h
	m.changes.record(Change{Kind: ChangeViewport, apply: func(v *View) { v.Width, v.Height = w, h }})
}

// ShowAll fits the view extent to the scene, falling back to the CAVE box.
func (m *Manager) ShowAll() {
	lo, hi, ok := mgl64.Vec3{}, mgl64.Vec3{}, false
	if m.staged.Root != nil {
		lo, hi, ok = m.staged.Root.Bounds()
	}
	if !ok {
		half := mgl64.Vec3{m.cfg.CaveWidth / 2, m.cfg.CaveHeight / 2, m.cfg.CaveDepth / 2}
		lo, hi = half.Mul(-1), half
	}
	m.staged.ExtentLo, m.staged.ExtentHi = lo, hi
	m.changes.record(Change{Kind: ChangeExtent, apply: func(v *View) { v.ExtentLo, v.ExtentHi = lo, hi }})
}

// CommitChanges makes every staged mutation visible to Redraw.
func (m *Manager) CommitChanges() {
	m.changes.commit(&m.visible)
}

// ClearChanges drops the committed change records.
func (m *Manager) ClearChanges() {
	m.changes.Clear()
}

// Changes exposes the change list for inspection.
func (m *Manager) Changes() *ChangeList {
	return &m.changes
}

// Visible returns the committed view.
func (m *Manager) Visible() View {
	return m.visible
}

// Frames counts redraws.
func (m *Manager) Frames() uint64 {
	return m.frames
}

// Redraw renders the committed view. It is a no-op after Close.
func (m *Manager) Redraw() {
	if m.closed {
		return
	}
	m.frames++
	f := m.frame()
	if m.presenter != nil {
		m.presenter.Present(f)
	}
}

func (m *Manager) frame() Frame {
	v := m.visible
	f := Frame{
		Number:      m.frames,
		View:        v,
		FollowHead:  m.cfg.FollowHead,
		Orientation: mgl64.QuatIdent(),
		Cave:        mgl64.Vec3{m.cfg.CaveWidth, m.cfg.CaveHeight, m.cfg.CaveDepth},
	}
	if f.FollowHead {
		f.Viewer, f.Orientation = v.HeadPosition, v.HeadOrientation
	}
	offset := f.Orientation.Rotate(mgl64.Vec3{1, 0, 0}).Mul(v.EyeSeparation / 2)
	f.LeftEye = f.Viewer.Sub(offset)
	f.RightEye = f.Viewer.Add(offset)
	return f
}

// Close stops rendering. Only the first call has an effect.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed = true
		m.logger.Info("render: scene manager closed", zap.Uint64("frames", m.frames))
	})
	return nil
}
