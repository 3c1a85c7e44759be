// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// sleep waits d on clk or until ctx is done. A non-positive d returns at once.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// mean averages float32 samples in float64 and narrows the result.
func mean(samples []float64) (float32, error) {
	m, err := stats.Mean(samples)
	if err != nil {
		return 0, errors.Wrap(err, "mean")
	}
	return float32(m), nil
}
