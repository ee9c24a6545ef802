// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"time"

	"github.com/u-root/wifiportal/pkg/clock"
	"github.com/u-root/wifiportal/pkg/wifi"
)

const (
	DefaultModeTimeout = 2 * time.Second
	ModePollInterval   = 10 * time.Millisecond
)

// WaitForMode polls r until it reports target or timeout elapses. It
// always returns; the result only says which happened, and callers are
// free to ignore it and carry on. A failed mode read counts as not there
// yet.
func WaitForMode(c clock.Clock, r wifi.ModeReader, target wifi.Mode, timeout time.Duration) bool {
	d := clock.NewDeadline(c, timeout)
	for {
		if m, err := r.Mode(); err == nil && m == target {
			return true
		}
		if d.Expired() {
			return false
		}
		c.Sleep(ModePollInterval)
	}
}
