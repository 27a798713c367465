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
)

var (
	interval time.Duration
	count    int
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "console",
	Short:         "Print the simulated tracker through the pose pipeline",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := app.NewLogger(verbose)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunSimConsole(ctx, os.Stdout, interval, count, logger)
	},
}

func init() {
	rootCmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "time between dumps")
	rootCmd.Flags().IntVarP(&count, "count", "n", 0, "stop after N dumps (0 = run until interrupted)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stdout, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
