// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scene is a minimal node tree: enough to describe the demo room,
// load one from a YAML file and compute its extent.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind is the shape or role of a node.
type Kind string

const (
	KindGroup  Kind = "group"
	KindPlane  Kind = "plane"
	KindSphere Kind = "sphere"
	KindTorus  Kind = "torus"
	KindLight  Kind = "light"
)

// Rotation is an axis plus an angle in degrees.
type Rotation struct {
	Axis    [3]float64 `yaml:"axis"`
	Degrees float64    `yaml:"degrees"`
}

// Node is one element of the scene tree.
//
// Size depends on Kind: plane {width, height} in its local XY plane,
// sphere {radius}, torus {inner radius, outer radius} around local z.
type Node struct {
	Name        string     `yaml:"name"`
	Kind        Kind       `yaml:"kind"`
	Translation [3]float64 `yaml:"translation"`
	Rotation    *Rotation  `yaml:"rotation,omitempty"`
	Size        []float64  `yaml:"size,omitempty"`
	Color       [3]float64 `yaml:"color"`
	Children    []*Node    `yaml:"children,omitempty"`
}

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Local returns the node's transform relative to its parent.
func (n *Node) Local() mgl64.Mat4 {
	m := mgl64.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2])
	if n.Rotation != nil && n.Rotation.Degrees != 0 {
		axis := mgl64.Vec3(n.Rotation.Axis)
		m = m.Mul4(mgl64.HomogRotate3D(mgl64.DegToRad(n.Rotation.Degrees), axis.Normalize()))
	}
	return m
}

// Walk visits n and its descendants depth first with their world transforms.
func (n *Node) Walk(fn func(n *Node, world mgl64.Mat4)) {
	n.walk(mgl64.Ident4(), fn)
}

func (n *Node) walk(parent mgl64.Mat4, fn func(*Node, mgl64.Mat4)) {
	world := parent.Mul4(n.Local())
	fn(n, world)
	for _, c := range n.Children {
		c.walk(world, fn)
	}
}

// Corners returns the world-space corners of the node's local bounding box.
// Groups and lights have none.
func (n *Node) Corners(world mgl64.Mat4) []mgl64.Vec3 {
	var hx, hy, hz float64
	switch n.Kind {
	case KindPlane:
		hx, hy = n.Size[0]/2, n.Size[1]/2
	case KindSphere:
		hx, hy, hz = n.Size[0], n.Size[0], n.Size[0]
	case KindTorus:
		r := n.Size[0] + n.Size[1]
		hx, hy, hz = r, r, n.Size[0]
	default:
		return nil
	}
	corners := make([]mgl64.Vec3, 0, 8)
	for _, x := range []float64{-hx, hx} {
		for _, y := range []float64{-hy, hy} {
			for _, z := range []float64{-hz, hz} {
				corners = append(corners, mgl64.TransformCoordinate(mgl64.Vec3{x, y, z}, world))
			}
		}
	}
	return corners
}

// Bounds returns the axis-aligned extent of every shape under n.
func (n *Node) Bounds() (lo, hi mgl64.Vec3, ok bool) {
	n.Walk(func(node *Node, world mgl64.Mat4) {
		for _, c := range node.Corners(world) {
			if !ok {
				lo, hi, ok = c, c, true
				continue
			}
			for i := 0; i < 3; i++ {
				lo[i] = min(lo[i], c[i])
				hi[i] = max(hi[i], c[i])
			}
		}
	})
	return lo, hi, ok
}

// Count returns the number of nodes in the tree.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, mgl64.Mat4) { count++ })
	return count
}

func (n *Node) validate(path string) error {
	path += "/" + n.Name
	want := map[Kind]int{KindGroup: 0, KindLight: 0, KindPlane: 2, KindSphere: 1, KindTorus: 2}
	size, known := want[n.Kind]
	if !known {
		return fmt.Errorf("%s: unknown kind %q", path, n.Kind)
	}
	if len(n.Size) < size {
		return fmt.Errorf("%s: %s needs %d size values, got %d", path, n.Kind, size, len(n.Size))
	}
	for _, s := range n.Size[:size] {
		if s <= 0 {
			return fmt.Errorf("%s: sizes must be positive, got %v", path, n.Size)
		}
	}
	if n.Rotation != nil && n.Rotation.Degrees != 0 && mgl64.Vec3(n.Rotation.Axis).Len() == 0 {
		return fmt.Errorf("%s: rotation axis is zero", path)
	}
	for _, c := range n.Children {
		if c == nil {
			return fmt.Errorf("%s: empty child", path)
		}
		if err := c.validate(path); err != nil {
			return err
		}
	}
	return nil
}
