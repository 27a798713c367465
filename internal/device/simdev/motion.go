// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package simdev

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

// Motion generates a plausible user inside the CAVE: a head swaying around
// standing height while looking around, a wand held in front of it, and a
// slow push on the analog stick. Positions are in metres.
type Motion struct {
	HeadSensor int
	WandSensor int
	// Period of one full sway, in seconds.
	Period float64
}

// DefaultMotion uses sensor 0 for the head and 1 for the wand.
func DefaultMotion() Motion {
	return Motion{HeadSensor: 0, WandSensor: 1, Period: 8}
}

func quatSample(q mgl64.Quat) [4]float64 {
	q = q.Normalize()
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// At returns the samples for time t seconds after start.
func (m Motion) At(t float64) (head, wand device.TrackerSample, analog device.AnalogSample) {
	period := m.Period
	if period <= 0 {
		period = 8
	}
	phase := 2 * math.Pi * t / period

	headPos := mgl64.Vec3{0.3 * math.Sin(phase), 1.7 + 0.05*math.Sin(2*phase), 0.2 * math.Cos(phase)}
	headRot := mgl64.QuatRotate(0.5*math.Sin(phase), mgl64.Vec3{0, 1, 0})
	head = device.TrackerSample{Sensor: m.HeadSensor, Quat: quatSample(headRot), Pos: headPos}

	reach := headRot.Rotate(mgl64.Vec3{0.2, -0.4, -0.5})
	wandRot := headRot.Mul(mgl64.QuatRotate(-0.3, mgl64.Vec3{1, 0, 0}))
	wand = device.TrackerSample{Sensor: m.WandSensor, Quat: quatSample(wandRot), Pos: headPos.Add(reach)}

	analog = device.AnalogSample{Channels: []float64{0.01 * math.Sin(phase/2), 0.01 * math.Cos(phase/2)}}
	return head, wand, analog
}
