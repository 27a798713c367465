// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

// ChangeKind names what a Change touches.
type ChangeKind int

const (
	ChangeUserTransform ChangeKind = iota
	ChangeTranslation
	ChangeEyeSeparation
	ChangeRoot
	ChangeViewport
	ChangeExtent
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUserTransform:
		return "user-transform"
	case ChangeTranslation:
		return "translation"
	case ChangeEyeSeparation:
		return "eye-separation"
	case ChangeRoot:
		return "root"
	case ChangeViewport:
		return "viewport"
	case ChangeExtent:
		return "extent"
	}
	return "unknown"
}

// Change is one recorded mutation of the view.
type Change struct {
	Kind  ChangeKind
	apply func(*View)
}

// ChangeList accumulates mutations until they are committed, and keeps the
// committed ones until cleared. A distributed renderer would broadcast the
// committed part; clearing it keeps the next frame from sending them again.
type ChangeList struct {
	pending   []Change
	committed []Change
}

func (l *ChangeList) record(c Change) {
	l.pending = append(l.pending, c)
}

// commit applies every pending change to v in order.
func (l *ChangeList) commit(v *View) {
	for _, c := range l.pending {
		c.apply(v)
	}
	l.committed = append(l.committed, l.pending...)
	l.pending = l.pending[:0]
}

// Clear drops the committed changes. Pending ones survive.
func (l *ChangeList) Clear() {
	l.committed = l.committed[:0]
}

// Pending is the number of uncommitted changes.
func (l *ChangeList) Pending() int { return len(l.pending) }

// Committed is the number of committed changes not yet cleared.
func (l *ChangeList) Committed() int { return len(l.committed) }

// CommittedKinds lists the kinds of the committed changes, oldest first.
func (l *ChangeList) CommittedKinds() []ChangeKind {
	kinds := make([]ChangeKind, len(l.committed))
	for i, c := range l.committed {
		kinds[i] = c.Kind
	}
	return kinds
}
