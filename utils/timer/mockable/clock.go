// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mockable provides a clock that tests can freeze and advance.
package mockable

import (
	"sync"
	"time"
)

// Clock reads wall time unless it has been frozen with Set.
// It is safe for concurrent use.
type Clock struct {
	mu     sync.RWMutex
	frozen bool
	now    time.Time
}

// Set freezes the clock at t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	c.now = t
}

// Advance moves a frozen clock forward by d. It has no effect on a live clock.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		c.now = c.now.Add(d)
	}
}

// Sync returns the clock to wall time.
func (c *Clock) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = false
}

// Time returns the current time of the clock.
func (c *Clock) Time() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return c.now
	}
	return time.Now()
}

// Unix returns the clock's unix timestamp in seconds, clamped at zero.
func (c *Clock) Unix() uint64 {
	return uint64(max(c.Time().Unix(), 0))
}
