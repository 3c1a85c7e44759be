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
	var configPath string
	cmd := &cobra.Command{
		Use:   "arm-bridge",
		Short: "relay the node's serial stream to TCP and MQTT",
		Long: `arm-bridge opens SERIAL_PORT (waiting for it to appear), copies every
byte verbatim to BRIDGE_TCP_ADDR and, when MQTT_BROKER is set, publishes
each decoded tick as JSON on TOPIC_TELEMETRY.`,
		Example:      "  arm-bridge --config=./node_config.txt",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := app.Setup(configPath)
			if err != nil {
				return err
			}
			ctx, stop := app.SignalContext()
			defer stop()
			return app.RunBridge(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./node_config.txt", "path to configuration file")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
