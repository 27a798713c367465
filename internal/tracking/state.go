// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracking holds the latest tracked poses and turns device samples
// into them.
package tracking

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is an orientation plus a position in renderer units.
type Pose struct {
	Orientation mgl64.Quat
	Position    mgl64.Vec3
}

// InitialHeadPose faces the user towards the scene: half a turn about y.
func InitialHeadPose() Pose {
	return Pose{Orientation: mgl64.QuatRotate(3.141, mgl64.Vec3{0, 1, 0})}
}

// State is the head pose, wand pose and analog vector seen by the frame loop.
// It is not safe for concurrent use; every access happens on the frame
// goroutine. Other goroutines read Snapshots.
type State struct {
	head   Pose
	wand   Pose
	analog mgl64.Vec3
}

// NewState returns a state with the initial head pose and an identity wand.
func NewState() *State {
	return &State{
		head: InitialHeadPose(),
		wand: Pose{Orientation: mgl64.QuatIdent()},
	}
}

func (s *State) Head() Pose         { return s.head }
func (s *State) SetHead(p Pose)     { s.head = p }
func (s *State) Wand() Pose         { return s.wand }
func (s *State) SetWand(p Pose)     { s.wand = p }
func (s *State) Analog() mgl64.Vec3 { return s.analog }

func (s *State) SetAnalog(v mgl64.Vec3) { s.analog = v }

// Print writes the diagnostic dump: head line, wand line, analog line.
func (s *State) Print(w io.Writer) {
	fmt.Fprintf(w, "Head position: %s orientation: %s\n", FormatVec(s.head.Position), FormatQuat(s.head.Orientation))
	fmt.Fprintf(w, "Wand position: %s orientation: %s\n", FormatVec(s.wand.Position), FormatQuat(s.wand.Orientation))
	fmt.Fprintf(w, "Analog: %s\n", FormatVec(s.analog))
}

// FormatVec prints "x, y, z".
func FormatVec(v mgl64.Vec3) string {
	return formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " + formatFloat(v[2])
}

// FormatQuat prints "x, y, z, w".
func FormatQuat(q mgl64.Quat) string {
	return FormatVec(q.V) + ", " + formatFloat(q.W)
}

// formatFloat keeps the sign of zero, so a negated zero axis prints "-0".
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
