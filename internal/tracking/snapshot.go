// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// PoseJSON is the wire form of a Pose.
type PoseJSON struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // x, y, z, w
}

// Snapshot is an immutable copy of the State taken after a frame.
type Snapshot struct {
	Frame       uint64     `json:"frame"`
	Time        time.Time  `json:"time"`
	Head        PoseJSON   `json:"head"`
	Wand        PoseJSON   `json:"wand"`
	Analog      [3]float64 `json:"analog"`
	Translation [3]float64 `json:"translation"`
}

func toJSON(p Pose) PoseJSON {
	return PoseJSON{
		Position:    p.Position,
		Orientation: [4]float64{p.Orientation.V[0], p.Orientation.V[1], p.Orientation.V[2], p.Orientation.W},
	}
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Head:   toJSON(s.head),
		Wand:   toJSON(s.wand),
		Analog: s.analog,
	}
}

// Pose converts the wire form back.
func (p PoseJSON) Pose() Pose {
	return Pose{
		Orientation: mgl64.Quat{W: p.Orientation[3], V: mgl64.Vec3{p.Orientation[0], p.Orientation[1], p.Orientation[2]}},
		Position:    p.Position,
	}
}

// State rebuilds a State from the snapshot, for printing on the consumer side.
func (s Snapshot) State() *State {
	return &State{head: s.Head.Pose(), wand: s.Wand.Pose(), analog: s.Analog}
}

// Latest holds the most recent snapshot for readers on other goroutines.
type Latest struct {
	mu   sync.RWMutex
	snap Snapshot
	have bool
}

// Store replaces the held snapshot.
func (l *Latest) Store(s Snapshot) {
	l.mu.Lock()
	l.snap = s
	l.have = true
	l.mu.Unlock()
}

// Load returns the held snapshot and whether one was stored yet.
func (l *Latest) Load() (Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap, l.have
}
