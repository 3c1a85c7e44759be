// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/arm_sensor_node/internal/app"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "arm-console",
		Short:        "print telemetry published by arm-bridge",
		Example:      "  arm-console --config=./node_config.txt",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := app.Setup(configPath)
			if err != nil {
				return err
			}
			ctx, stop := app.SignalContext()
			defer stop()
			return app.RunConsole(ctx, cfg, os.Stdout, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./node_config.txt", "path to configuration file")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
