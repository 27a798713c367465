// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package command

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/cave_tracker/internal/config"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

type eyes struct{ d float64 }

func (e *eyes) EyeSeparation() float64     { return e.d }
func (e *eyes) SetEyeSeparation(d float64) { e.d = d }

type fixture struct {
	interp    *Interpreter
	state     *tracking.State
	eyes      *eyes
	cfg       *config.Config
	out       *bytes.Buffer
	teardowns int
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		state: tracking.NewState(),
		eyes:  &eyes{d: 6},
		cfg:   config.Default(),
		out:   &bytes.Buffer{},
	}
	f.interp = New(f.state, f.eyes, f.cfg, DefaultBounds, f.out, func() { f.teardowns++ }, zaptest.NewLogger(t))
	return f
}

func (f *fixture) press(t *testing.T, k rune, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.interp.Key(k))
	}
}

func TestHeadMovementIsClamped(t *testing.T) {
	tests := []struct {
		key   rune
		axis  int
		limit float64
	}{
		{'w', 1, 270},
		{'s', 1, -2},
		{'r', 2, -133},
		{'f', 2, 133},
		{'a', 0, -133},
		{'d', 0, 133},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			f := newFixture(t)
			f.press(t, tt.key, 500)
			assert.Equal(t, tt.limit, f.state.Head().Position[tt.axis])
		})
	}
}

func TestHeadMovementStep(t *testing.T) {
	f := newFixture(t)
	f.press(t, 'w', 3)
	f.press(t, 'a', 1)
	f.press(t, 'f', 2)
	assert.Equal(t, mgl64.Vec3{-2, 6, 4}, f.state.Head().Position)
}

func TestClampLandsOnBound(t *testing.T) {
	f := newFixture(t)
	head := f.state.Head()
	head.Position = mgl64.Vec3{0, 269, 0}
	f.state.SetHead(head)

	f.press(t, 'w', 1)
	assert.Equal(t, 270.0, f.state.Head().Position.Y())
}

func TestTrackedPositionOutsideBoundsIsKept(t *testing.T) {
	f := newFixture(t)
	head := f.state.Head()
	head.Position = mgl64.Vec3{0, 300, 0}
	f.state.SetHead(head)

	f.press(t, 'w', 1)
	assert.Equal(t, 300.0, f.state.Head().Position.Y())
	f.press(t, 's', 1)
	assert.Equal(t, 298.0, f.state.Head().Position.Y())
}

func TestRotateAddsUnitAxisStep(t *testing.T) {
	assertQuat := func(t *testing.T, want, got mgl64.Quat) {
		t.Helper()
		assert.InDelta(t, want.W, got.W, 1e-12, "w")
		assert.InDelta(t, want.V[0], got.V[0], 1e-12, "x")
		assert.InDelta(t, want.V[1], got.V[1], 1e-12, "y")
		assert.InDelta(t, want.V[2], got.V[2], 1e-12, "z")
	}

	for key, axis := range map[rune]float64{'u': 1, 'j': -1} {
		t.Run(string(key), func(t *testing.T) {
			f := newFixture(t)
			f.state.SetHead(tracking.Pose{Orientation: mgl64.QuatIdent()})
			f.press(t, key, 1)

			got := f.state.Head().Orientation
			want := mgl64.QuatIdent().Add(mgl64.QuatRotate(3.141, mgl64.Vec3{axis, 0, 0})).Normalize()
			assertQuat(t, want, got)
			assert.InDelta(t, 0.7072, got.W, 1e-4)
			assert.InDelta(t, 0.7070*axis, got.V[0], 1e-4)
			assert.InDelta(t, 1, got.Len(), 1e-12)
			assert.Equal(t, mgl64.Vec3{}, f.state.Head().Position)
		})
	}
}

func TestEyeSeparation(t *testing.T) {
	f := newFixture(t)
	f.press(t, 'e', 1)
	assert.InDelta(t, 5.4, f.eyes.d, 1e-12)
	f.press(t, 'E', 1)
	assert.InDelta(t, 5.94, f.eyes.d, 1e-12)
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Eye distance: 5.4"))
	assert.True(t, strings.HasPrefix(lines[1], "Eye distance: 5.9"))

	// no ceiling
	f.press(t, 'E', 100)
	assert.Greater(t, f.eyes.d, 1000.0)
}

func TestFollowHeadToggle(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.cfg.FollowHead)
	f.press(t, 't', 1)
	assert.False(t, f.cfg.FollowHead)
	f.press(t, 't', 1)
	assert.True(t, f.cfg.FollowHead)
	assert.Equal(t, "following head: false\nfollowing head: true\n", f.out.String())
}

func TestDumpKey(t *testing.T) {
	f := newFixture(t)
	f.press(t, 'i', 1)
	assert.Equal(t, 1, strings.Count(f.out.String(), "Head position:"))
	assert.Equal(t, 1, strings.Count(f.out.String(), "Wand position:"))
	assert.Equal(t, 1, strings.Count(f.out.String(), "Analog:"))
}

func TestUnknownAndReservedKeys(t *testing.T) {
	f := newFixture(t)
	before := *f.state
	f.press(t, 'z', 1)
	f.press(t, 'h', 1)
	f.press(t, 'k', 1)
	assert.Equal(t, "Key 'z' ignored\n", f.out.String())
	assert.Equal(t, before, *f.state)
}

func TestQuit(t *testing.T) {
	for _, k := range []rune{'q', KeyEscape} {
		f := newFixture(t)
		assert.ErrorIs(t, f.interp.Key(k), ErrQuit)
		assert.Equal(t, 1, f.teardowns)
	}
}
