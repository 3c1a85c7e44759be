// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampler

import "sync"

// cell holds the devices once boot hands them over. Holding mu is the
// only way to touch them afterwards.
type cell struct {
	mu sync.Mutex
	d  *Devices
}

// put stores d. It reports false if the cell was already filled.
func (c *cell) put(d *Devices) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.d != nil {
		return false
	}
	c.d = d
	return true
}

// with runs fn under the lock. It reports false if the cell is empty.
func (c *cell) with(fn func(d *Devices)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.d == nil {
		return false
	}
	fn(c.d)
	return true
}

func (c *cell) filled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.d != nil
}
