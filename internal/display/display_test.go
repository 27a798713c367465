// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/relabs-tech/cave_tracker/internal/render"
	"github.com/relabs-tech/cave_tracker/internal/scene"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeApp struct {
	mu    sync.Mutex
	keys  []rune
	idles int
	fail  rune
}

var errStop = errors.New("stop")

func (a *fakeApp) Key(k rune) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, k)
	if k == a.fail {
		return errStop
	}
	return nil
}

func (a *fakeApp) Idle() {
	a.mu.Lock()
	a.idles++
	a.mu.Unlock()
}

func sampleFrame() render.Frame {
	return render.Frame{
		Number: 3,
		View: render.View{
			HeadPosition:    mgl64.Vec3{10, 150, 20},
			HeadOrientation: mgl64.QuatIdent(),
			EyeSeparation:   6,
			Root:            scene.Demo(),
		},
		FollowHead:  true,
		Viewer:      mgl64.Vec3{10, 150, 20},
		Orientation: mgl64.QuatIdent(),
		LeftEye:     mgl64.Vec3{7, 150, 20},
		RightEye:    mgl64.Vec3{13, 150, 20},
		Cave:        mgl64.Vec3{270, 270, 270},
	}
}

func TestCanvasWaitingImage(t *testing.T) {
	c := NewCanvas(160, 120)
	img := c.Image()
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
	_, ok := c.Last()
	assert.False(t, ok)
}

func TestCanvasDrawsViewer(t *testing.T) {
	c := NewCanvas(320, 240)
	f := sampleFrame()
	c.Present(f)

	img := c.Image()
	p := newProjection(f, 320, 240)
	x, y := p.point(f.Viewer)
	assert.Equal(t, viewerCol, img.RGBAAt(x, y))

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(3), last.Number)
}

func TestProjectionKeepsCaveInside(t *testing.T) {
	f := sampleFrame()
	p := newProjection(f, 200, 100)
	for _, v := range []mgl64.Vec3{{-135, 0, -135}, {135, 0, 135}} {
		x, y := p.point(v)
		assert.True(t, x >= 0 && x < 200, "x %d", x)
		assert.True(t, y >= 0 && y < 100, "y %d", y)
	}
}

func TestHUDLines(t *testing.T) {
	lines := hudLines(sampleFrame())
	require.Len(t, lines, 4)
	assert.Equal(t, "frame 3", lines[0])
	assert.Equal(t, "head 10, 150, 20", lines[1])
	assert.Equal(t, "eyes 6.00 follow true", lines[3])
}

func TestCanvasResize(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Resize(40, 30)
	c.Resize(0, 5)
	w, h := c.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, 40, c.Image().Bounds().Dx())
}

func TestRunHeadlessTickLimit(t *testing.T) {
	app := &fakeApp{}
	err := RunHeadless(context.Background(), app, nil, nil, HeadlessConfig{Hz: 1000, Ticks: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, app.idles)
}

func TestRunHeadlessKeyError(t *testing.T) {
	app := &fakeApp{fail: 'q'}
	keys := ReadKeys(strings.NewReader("ab\nq\n"))
	err := RunHeadless(context.Background(), app, nil, keys, HeadlessConfig{Hz: 100})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, []rune{'a', 'b', 'q'}, app.keys)
}

func TestRunHeadlessCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := RunHeadless(ctx, &fakeApp{}, nil, nil, HeadlessConfig{Hz: 100})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunHeadlessClosedKeysKeepTicking(t *testing.T) {
	app := &fakeApp{}
	keys := ReadKeys(strings.NewReader(""))
	err := RunHeadless(context.Background(), app, nil, keys, HeadlessConfig{Hz: 1000, Ticks: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, app.idles)
}

func TestRunHeadlessSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last.png")
	canvas := NewCanvas(64, 48)
	canvas.Present(sampleFrame())

	err := RunHeadless(context.Background(), &fakeApp{}, canvas, nil, HeadlessConfig{Hz: 1000, Ticks: 1, Snapshot: path})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestRunHeadlessSnapshotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "last.png")
	err := RunHeadless(context.Background(), &fakeApp{}, NewCanvas(8, 8), nil, HeadlessConfig{Hz: 1000, Ticks: 1, Snapshot: path})
	assert.Error(t, err)
}
