// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display turns redrawn frames into an overhead image of the CAVE
// and runs the frame loop without a window.
package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/cave_tracker/internal/render"
	"github.com/relabs-tech/cave_tracker/internal/scene"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

const lineHeight = 13

var (
	background = color.RGBA{0x10, 0x12, 0x18, 0xff}
	caveColor  = color.RGBA{0x50, 0x58, 0x68, 0xff}
	viewerCol  = color.RGBA{0xff, 0xd0, 0x40, 0xff}
	leftEyeCol = color.RGBA{0xff, 0x40, 0x40, 0xff}
	rightEyeCl = color.RGBA{0x40, 0xa0, 0xff, 0xff}
	textColor  = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
)

// Canvas is the render.Presenter of both display hosts. It keeps the last
// frame and draws it on demand as seen from above (x right, z down).
type Canvas struct {
	width, height int
	last          render.Frame
	have          bool
	img           *image.RGBA
}

var _ render.Presenter = (*Canvas)(nil)

// NewCanvas creates a canvas of w x h pixels.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{width: w, height: h}
}

func (c *Canvas) Present(f render.Frame) {
	c.last = f
	c.have = true
}

// Last returns the most recent frame, if any was presented.
func (c *Canvas) Last() (render.Frame, bool) {
	return c.last, c.have
}

// Size returns the pixel size of the canvas.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Resize changes the pixel size used by the next Image.
func (c *Canvas) Resize(w, h int) {
	if w > 0 && h > 0 {
		c.width, c.height = w, h
	}
}

// Image draws the last frame. The returned image is reused by later calls.
func (c *Canvas) Image() *image.RGBA {
	r := image.Rect(0, 0, c.width, c.height)
	if c.img == nil || c.img.Bounds() != r {
		c.img = image.NewRGBA(r)
	}
	draw.Draw(c.img, r, &image.Uniform{background}, image.Point{}, draw.Src)

	if !c.have {
		drawLines(c.img, textColor, "CAVE", "Waiting...")
		return c.img
	}

	p := newProjection(c.last, c.width, c.height)
	f := c.last

	half := f.Cave.Mul(0.5)
	p.rect(c.img, mgl64.Vec3{-half[0], 0, -half[2]}, mgl64.Vec3{half[0], 0, half[2]}, caveColor)

	if root := f.View.Root; root != nil {
		root.Walk(func(n *scene.Node, world mgl64.Mat4) {
			if n.Kind == scene.KindGroup {
				return
			}
			for _, v := range n.Corners(world) {
				p.dot(c.img, v.Add(f.View.Translation), 0, nodeColor(n))
			}
		})
	}

	p.dot(c.img, f.LeftEye, 1, leftEyeCol)
	p.dot(c.img, f.RightEye, 1, rightEyeCl)
	p.dot(c.img, f.Viewer, 2, viewerCol)
	p.line(c.img, f.Viewer, f.Viewer.Add(f.Orientation.Rotate(mgl64.Vec3{0, 0, -30})), viewerCol)

	drawLines(c.img, textColor, hudLines(f)...)
	return c.img
}

func hudLines(f render.Frame) []string {
	return []string{
		fmt.Sprintf("frame %d", f.Number),
		"head " + tracking.FormatVec(f.View.HeadPosition),
		"nav  " + tracking.FormatVec(f.View.Translation),
		fmt.Sprintf("eyes %.2f follow %t", f.View.EyeSeparation, f.FollowHead),
	}
}

func nodeColor(n *scene.Node) color.RGBA {
	c := n.Color
	if c == [3]float64{} {
		c = [3]float64{0.7, 0.7, 0.7}
	}
	return color.RGBA{channel(c[0]), channel(c[1]), channel(c[2]), 0xff}
}

func channel(v float64) uint8 {
	return uint8(math.Round(mgl64.Clamp(v, 0, 1) * 255))
}

func drawLines(img draw.Image, col color.Color, lines ...string) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{col},
		Face: basicfont.Face7x13,
	}
	for i, l := range lines {
		drawer.Dot = fixed.P(2, lineHeight*(i+1))
		drawer.DrawString(l)
	}
}

// projection maps the x/z floor plane onto the canvas so that the CAVE and
// the fitted scene extent are both visible.
type projection struct {
	cx, cz float64
	scale  float64
	w, h   int
}

func newProjection(f render.Frame, w, h int) projection {
	lo := mgl64.Vec3{-f.Cave[0] / 2, 0, -f.Cave[2] / 2}
	hi := mgl64.Vec3{f.Cave[0] / 2, 0, f.Cave[2] / 2}
	if f.View.ExtentLo != f.View.ExtentHi {
		lo = mgl64.Vec3{math.Min(lo[0], f.View.ExtentLo[0]), 0, math.Min(lo[2], f.View.ExtentLo[2])}
		hi = mgl64.Vec3{math.Max(hi[0], f.View.ExtentHi[0]), 0, math.Max(hi[2], f.View.ExtentHi[2])}
	}
	spanX, spanZ := hi[0]-lo[0], hi[2]-lo[2]
	scale := 1.0
	if spanX > 0 && spanZ > 0 {
		scale = 0.9 * math.Min(float64(w)/spanX, float64(h)/spanZ)
	}
	return projection{cx: (lo[0] + hi[0]) / 2, cz: (lo[2] + hi[2]) / 2, scale: scale, w: w, h: h}
}

func (p projection) point(v mgl64.Vec3) (int, int) {
	x := float64(p.w)/2 + (v[0]-p.cx)*p.scale
	y := float64(p.h)/2 + (v[2]-p.cz)*p.scale
	return int(math.Round(x)), int(math.Round(y))
}

func (p projection) dot(img *image.RGBA, v mgl64.Vec3, radius int, col color.RGBA) {
	x, y := p.point(v)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			img.SetRGBA(x+dx, y+dy, col)
		}
	}
}

func (p projection) rect(img *image.RGBA, lo, hi mgl64.Vec3, col color.RGBA) {
	corners := []mgl64.Vec3{lo, {hi[0], 0, lo[2]}, hi, {lo[0], 0, hi[2]}}
	for i := range corners {
		p.line(img, corners[i], corners[(i+1)%len(corners)], col)
	}
}

func (p projection) line(img *image.RGBA, a, b mgl64.Vec3, col color.RGBA) {
	x0, y0 := p.point(a)
	x1, y1 := p.point(b)
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		img.SetRGBA(x0, y0, col)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := float64(x0) + t*float64(x1-x0)
		y := float64(y0) + t*float64(y1-y0)
		img.SetRGBA(int(math.Round(x)), int(math.Round(y)), col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
