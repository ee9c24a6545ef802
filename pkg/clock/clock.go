// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clock abstracts the time operations used by poll loops so
// timeouts can be tested without sleeping.
package clock

import (
	"runtime"
	"sync"
	"time"
)

// Clock is the subset of package time a poll loop needs.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

// Real returns a Clock backed by package time.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Deadline is a point in time measured against a Clock.
type Deadline struct {
	clock Clock
	at    time.Time
}

// NewDeadline returns a deadline d from now.
func NewDeadline(c Clock, d time.Duration) Deadline {
	return Deadline{clock: c, at: c.Now().Add(d)}
}

// Expired reports whether the deadline has passed.
func (d Deadline) Expired() bool {
	return !d.clock.Now().Before(d.at)
}

// Remaining is the time left, never negative.
func (d Deadline) Remaining() time.Duration {
	if r := d.at.Sub(d.clock.Now()); r > 0 {
		return r
	}
	return 0
}

// FakeClock is a Clock whose Sleep advances time immediately. Sleep
// yields the processor so goroutines a poll loop waits on still run.
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	slept   time.Duration
}

// Fake returns a FakeClock starting at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d > 0 {
		c.Advance(d)
	}
	runtime.Gosched()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	c.slept += d
}

// Elapsed is the total time the clock was advanced.
func (c *FakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}
