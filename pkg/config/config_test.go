// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/u-root/wifiportal/pkg/provision"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "WiFi-Setup", c.AccessPoint.SSID)
	assert.Empty(t, c.AccessPoint.Password)
	assert.Equal(t, provision.DefaultConfig(), c.Provision())

	addr, err := c.APAddress()
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.1/24", addr.String())
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverrides(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wifiportal.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
interface: wlp2s0
access_point:
  ssid: Setup-1234
  password: portalpass
timing:
  connect_timeout: 30s
  grace_period: 500ms
report_path: /run/wifiportal.cbor
announce:
  enabled: true
  instance: kitchen
`), 0o644))

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "wlp2s0", c.Interface)
	assert.Equal(t, "Setup-1234", c.AccessPoint.SSID)
	assert.Equal(t, "portalpass", c.AccessPoint.Password)
	// Keys not in the file keep their defaults.
	assert.Equal(t, 6, c.AccessPoint.Channel)
	assert.Equal(t, "192.168.4.1/24", c.AccessPoint.Address)
	assert.Equal(t, 2*time.Second, c.Timing.ModeTimeout)
	assert.Equal(t, 30*time.Second, c.Timing.ConnectTimeout)
	assert.Equal(t, 500*time.Millisecond, c.Timing.GracePeriod)
	assert.Equal(t, "/run/wifiportal.cbor", c.ReportPath)
	assert.True(t, c.Announce.Enabled)
	assert.Equal(t, "_wifiportal._tcp", c.Announce.Service)

	pc := c.Provision()
	assert.Equal(t, "portalpass", pc.APPassword)
	assert.Equal(t, 30*time.Second, pc.ConnectTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParseInvalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   string
		is   error
	}{
		{name: "unknown key", in: "colour: blue\n"},
		{name: "bad yaml", in: "interface: [\n"},
		{name: "empty interface", in: "interface: \"\"\n"},
		{name: "long ssid", in: "access_point:\n  ssid: 0123456789abcdef0123456789abcdefX\n", is: provision.ErrNameLength},
		{name: "short password", in: "access_point:\n  password: short\n", is: provision.ErrPassphraseLength},
		{name: "channel", in: "access_point:\n  channel: 15\n"},
		{name: "address", in: "access_point:\n  address: 192.168.4.1\n"},
		{name: "ipv6 address", in: "access_point:\n  address: fd00::1/64\n"},
		{name: "negative timeout", in: "timing:\n  connect_timeout: -1s\n"},
		{name: "zero poll", in: "timing:\n  status_interval: 0s\n"},
		{name: "no stop attempts", in: "timing:\n  stop_attempts: 0\n"},
		{name: "announce port", in: "announce:\n  enabled: true\n  port: 70000\n"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
