// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/app"
	"github.com/relabs-tech/cave_tracker/internal/config"
)

var (
	opts    app.Options
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cave [scenefile]",
	Short: "CAVE viewer driven by a 6-DOF tracker",
	Long: `cave keeps the rendered viewpoint of a CAVE in step with the tracked head.

Tracker, button and analog samples arrive over MQTT, a serial line or the
built-in simulator (DEVICE_TRANSPORT). Without a scene file the demo scene
is shown.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = app.NewLogger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			opts.ScenePath = args[0]
		}
		opts.Stdin = os.Stdin
		opts.Stdout = os.Stdout
		opts.Logger = logger

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunCave(ctx, opts)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.ConfigPath, "file", "f", config.DefaultPath, "configuration file")
	f.BoolVar(&opts.Headless, "headless", false, "run without a window, keys from stdin")
	f.IntVar(&opts.Hz, "hz", 60, "frame rate in headless mode")
	f.Uint64Var(&opts.Ticks, "ticks", 0, "stop after N frames in headless mode (0 = run until quit)")
	f.StringVar(&opts.Snapshot, "snapshot", "", "write the last frame as PNG on exit (headless)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stdout, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
