// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/u-root/wifiportal/pkg/clock"
	"github.com/u-root/wifiportal/pkg/wifi"
)

type brokenReader struct{}

func (brokenReader) Mode() (wifi.Mode, error) {
	return wifi.ModeOff, errors.New("ioctl: operation not supported")
}

func TestWaitForMode(t *testing.T) {
	for _, tt := range []struct {
		name    string
		lag     int
		want    bool
		minWait time.Duration
	}{
		{"immediate", 0, true, 0},
		{"lagging", 5, true, 5 * ModePollInterval},
		{"never", 1000, false, DefaultModeTimeout},
	} {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.Fake(time.Unix(0, 0))
			r := wifi.NewStubWorker("")
			r.ModeLag = tt.lag
			require.NoError(t, r.SetMode(wifi.ModeStation))

			got := WaitForMode(clk, r, wifi.ModeStation, DefaultModeTimeout)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, clk.Elapsed(), tt.minWait)
			assert.LessOrEqual(t, clk.Elapsed(), DefaultModeTimeout+ModePollInterval)
		})
	}
}

func TestWaitForModeReadErrors(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	assert.False(t, WaitForMode(clk, brokenReader{}, wifi.ModeAccessPoint, 100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, clk.Elapsed())
}

func TestWaitForModeZeroTimeout(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	assert.False(t, WaitForMode(clk, brokenReader{}, wifi.ModeAccessPoint, 0))
	assert.Zero(t, clk.Elapsed())
}
