// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/cave_tracker/internal/device"
	"github.com/relabs-tech/cave_tracker/internal/device/simdev"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
	"github.com/relabs-tech/cave_tracker/internal/units"
)

// RunSimConsole feeds the simulated device through a session and prints
// the pose state in the dump format every interval, count times (0 runs
// until ctx is done). No broker and no window are needed.
func RunSimConsole(ctx context.Context, out io.Writer, interval time.Duration, count int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	sim := simdev.New(simdev.Options{Logger: logger.Named("sim")})
	state := tracking.NewState()
	receiver := tracking.NewReceiver(state, units.NewConverter(units.Meters, units.Centimeters), func() { state.Print(out) })
	session := device.NewSession("Sim@localhost", sim, device.Sensors{Head: 0, Wand: 1}, receiver, logger.Named("device"))
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(gctx, simdev.DefaultMotion(), simInterval) })

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var err error
loop:
	for n := 0; count == 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case <-ticker.C:
			session.Mainloop()
			fmt.Fprintf(out, "[%d]\n", n)
			state.Print(out)
		}
	}

	cancel()
	if werr := g.Wait(); werr != nil {
		err = errors.Join(err, werr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
