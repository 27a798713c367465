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

	"github.com/relabs-tech/cave_tracker/internal/app"
	"github.com/relabs-tech/cave_tracker/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "console_mqtt",
	Short:         "Print the pose telemetry of a running cave",
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
		return app.RunConsoleMQTT(ctx, app.ConsoleOptions{
			ConfigPath: configPath,
			Out:        os.Stdout,
			Logger:     logger,
		})
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "file", "f", config.DefaultPath, "configuration file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stdout, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
