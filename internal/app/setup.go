// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/arm_sensor_node/internal/config"
)

// Setup loads the global configuration and builds the logger it asks for.
func Setup(configPath string) (*config.Config, *logrus.Logger, error) {
	if err := config.InitGlobal(configPath); err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}
	cfg := config.Get()
	log, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
