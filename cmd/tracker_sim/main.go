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
	"time"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/cave_tracker/internal/app"
	"github.com/relabs-tech/cave_tracker/internal/config"
)

var (
	opts    app.SimOptions
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "tracker_sim",
	Short:         "Publish a simulated tracked user to the device topics",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := app.NewLogger(verbose)
		if err != nil {
			return err
		}
		defer logger.Sync()
		opts.Logger = logger

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunTrackerSim(ctx, opts)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.ConfigPath, "file", "f", config.DefaultPath, "configuration file")
	f.DurationVar(&opts.Interval, "interval", 10*time.Millisecond, "time between samples")
	f.DurationVar(&opts.PressEvery, "press-every", 0, "press button 0 this often (0 = never)")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stdout, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
