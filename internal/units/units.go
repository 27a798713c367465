// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package units converts tracker lengths into renderer lengths.
package units

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"periph.io/x/conn/v3/physic"
)

// Unit is a length unit used either by a tracking device or by the renderer.
type Unit int

const (
	Millimeters Unit = iota
	Centimeters
	Decimeters
	Meters
	Inches
	Feet
)

// physic has no centimetre or decimetre constant.
var lengths = map[Unit]physic.Distance{
	Millimeters: physic.MilliMetre,
	Centimeters: 10 * physic.MilliMetre,
	Decimeters:  100 * physic.MilliMetre,
	Meters:      physic.Metre,
	Inches:      physic.Inch,
	Feet:        physic.Foot,
}

var names = map[Unit]string{
	Millimeters: "mm",
	Centimeters: "cm",
	Decimeters:  "dm",
	Meters:      "m",
	Inches:      "inch",
	Feet:        "feet",
}

// Parse accepts the short names used in configuration files ("mm", "cm",
// "dm", "m", "inch", "feet") and a few long spellings.
func Parse(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mm", "millimeter", "millimeters":
		return Millimeters, nil
	case "cm", "centimeter", "centimeters":
		return Centimeters, nil
	case "dm", "decimeter", "decimeters":
		return Decimeters, nil
	case "m", "meter", "meters":
		return Meters, nil
	case "in", "inch", "inches":
		return Inches, nil
	case "ft", "foot", "feet":
		return Feet, nil
	}
	return 0, fmt.Errorf("unknown length unit %q", s)
}

func (u Unit) String() string {
	if n, ok := names[u]; ok {
		return n
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	_, ok := lengths[u]
	return ok
}

// Length returns the physical length of one u.
func (u Unit) Length() physic.Distance {
	return lengths[u]
}

// Scale returns how many `to` units make up one `from` unit.
func Scale(from, to Unit) float64 {
	return float64(from.Length()) / float64(to.Length())
}

// Convert rescales a single value from one unit to another.
func Convert(from Unit, value float64, to Unit) float64 {
	return value * Scale(from, to)
}

// Converter applies a scale fixed at construction time.
type Converter struct {
	scale float64
}

// NewConverter caches Scale(from, to) for the lifetime of the converter.
func NewConverter(from, to Unit) Converter {
	return Converter{scale: Scale(from, to)}
}

// FixedConverter returns a converter with an explicit scale.
func FixedConverter(scale float64) Converter {
	return Converter{scale: scale}
}

// Scale returns the cached multiplier.
func (c Converter) Scale() float64 {
	return c.scale
}

// Apply rescales every component of a raw device position.
func (c Converter) Apply(raw [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{raw[0] * c.scale, raw[1] * c.scale, raw[2] * c.scale}
}
