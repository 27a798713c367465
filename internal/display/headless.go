// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"
)

// App is what a display host drives: keys as they arrive and one Idle per
// tick. A non-nil error from Key stops the host and is returned by it.
type App interface {
	Key(k rune) error
	Idle()
}

// HeadlessConfig controls the no-window host.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64 // 0 runs until ctx is done
	// Snapshot, when set, receives a PNG of the last frame on exit.
	Snapshot string
}

// RunHeadless ticks app at cfg.Hz until ctx is done, the tick limit is
// reached, or Key returns an error. Keys are handled between ticks.
func RunHeadless(ctx context.Context, app App, canvas *Canvas, keys <-chan rune, cfg HeadlessConfig) (err error) {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	if cfg.Snapshot != "" && canvas != nil {
		defer func() {
			if snapErr := WritePNG(cfg.Snapshot, canvas.Image()); snapErr != nil {
				err = errors.Join(err, snapErr)
			}
		}()
	}

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if err := app.Key(k); err != nil {
				return err
			}
		case <-t.C:
			app.Idle()
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}

// ReadKeys forwards the runes of r, minus line breaks, until EOF. The
// channel closes when r is exhausted.
func ReadKeys(r io.Reader) <-chan rune {
	ch := make(chan rune, 64)
	go func() {
		defer close(ch)
		br := bufio.NewReader(r)
		for {
			k, _, err := br.ReadRune()
			if err != nil {
				return
			}
			if k == '\n' || k == '\r' {
				continue
			}
			ch <- k
		}
	}()
	return ch
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("snapshot encode: %w", err)
	}
	return f.Close()
}
