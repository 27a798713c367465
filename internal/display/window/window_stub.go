// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !cgo

package window

import (
	"errors"

	"github.com/relabs-tech/cave_tracker/internal/display"
)

type Config struct {
	Title         string
	Width, Height int
	Resize        func(w, h int)
	Done          <-chan struct{}
}

func Run(display.App, *display.Canvas, Config) error {
	return errors.New("window mode requires cgo (build with CGO_ENABLED=1 or use --headless)")
}
