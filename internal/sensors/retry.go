// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ErrRetryExhausted is returned when a bounded RetryPolicy gives up.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryPolicy controls how boot-time bus operations are retried.
// Attempts are immediate; the bus transaction itself is the pacing.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries. 0 means retry until the
	// context is cancelled.
	MaxAttempts int
}

// Unbounded retries until acknowledged or cancelled.
var Unbounded = RetryPolicy{}

// Do runs op until it succeeds, the policy is exhausted, or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, what string, op func() error) error {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}

	attempts := 0
	var last error
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		last = op()
		return last
	}, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return errors.Wrapf(cerr, "%s: cancelled after %d attempts", what, attempts)
	}
	return errors.Wrapf(ErrRetryExhausted, "%s: %d attempts, last error: %v", what, attempts, last)
}
