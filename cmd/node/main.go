// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/arm_sensor_node/internal/app"
)

func main() {
	var (
		configPath string
		simulate   bool
	)
	cmd := &cobra.Command{
		Use:   "arm-node",
		Short: "stream arm orientation and elbow angle over serial",
		Long: `arm-node boots the BMX055 and the elbow potentiometer, calibrates both
at rest, waits for the start input and then streams one orientation frame
and one joint angle frame per sample period on the serial port.

With --simulate the sensors and pins are replaced by in-process stand-ins,
and output is discarded unless SERIAL_PORT is set.`,
		Example:      "  arm-node --config=./node_config.txt\n  arm-node --simulate",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := app.Setup(configPath)
			if err != nil {
				return err
			}
			ctx, stop := app.SignalContext()
			defer stop()
			return app.RunNode(ctx, cfg, simulate, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./node_config.txt", "path to configuration file")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "use simulated sensors and pins")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
