// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build cgo

// Package window shows the overhead canvas in a desktop window and feeds
// typed keys to the app.
package window

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/relabs-tech/cave_tracker/internal/display"
)

const keyEscape = 27

// Config sets up the window.
type Config struct {
	Title         string
	Width, Height int
	// Resize is called with the new logical size when the window changes.
	Resize func(w, h int)
	// Done closes the window when it is closed.
	Done <-chan struct{}
}

// Run opens the window and blocks until it closes or app.Key fails. The
// Key error is returned.
func Run(app display.App, canvas *display.Canvas, cfg Config) error {
	g := &game{app: app, canvas: canvas, resize: cfg.Resize, done: cfg.Done}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return g.err
	}
	return err
}

type game struct {
	app    display.App
	canvas *display.Canvas
	resize func(w, h int)
	done   <-chan struct{}
	screen *ebiten.Image
	chars  []rune
	err    error
}

func (g *game) Update() error {
	select {
	case <-g.done:
		return ebiten.Termination
	default:
	}
	g.chars = ebiten.AppendInputChars(g.chars[:0])
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.chars = append(g.chars, keyEscape)
	}
	for _, k := range g.chars {
		if err := g.app.Key(k); err != nil {
			g.err = err
			return ebiten.Termination
		}
	}
	g.app.Idle()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	img := g.canvas.Image()
	b := img.Bounds()
	if g.screen == nil || g.screen.Bounds().Dx() != b.Dx() || g.screen.Bounds().Dy() != b.Dy() {
		if g.screen != nil {
			g.screen.Deallocate()
		}
		g.screen = ebiten.NewImage(b.Dx(), b.Dy())
	}
	g.screen.WritePixels(img.Pix)
	screen.DrawImage(g.screen, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.canvas.Size()
	if outsideWidth != w || outsideHeight != h {
		g.canvas.Resize(outsideWidth, outsideHeight)
		if g.resize != nil {
			g.resize(outsideWidth, outsideHeight)
		}
	}
	return g.canvas.Size()
}
