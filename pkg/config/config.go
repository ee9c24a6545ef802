// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the wifiportal configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/u-root/wifiportal/pkg/portal"
	"github.com/u-root/wifiportal/pkg/provision"
)

// Config is the whole configuration file. Keys missing from the file
// keep their Default value.
type Config struct {
	Interface   string      `yaml:"interface"`
	AccessPoint AccessPoint `yaml:"access_point"`
	Portal      Portal      `yaml:"portal"`
	Timing      Timing      `yaml:"timing"`
	Announce    Announce    `yaml:"announce"`
	// ReportPath is where the outcome of a run is written. Empty
	// disables the report.
	ReportPath string `yaml:"report_path"`
}

type AccessPoint struct {
	SSID string `yaml:"ssid"`
	// Password secures the access point with WPA2. Empty means open.
	Password string `yaml:"password"`
	Channel  int    `yaml:"channel"`
	// Address is the device address on the portal network, in CIDR
	// notation.
	Address     string `yaml:"address"`
	HostapdConf string `yaml:"hostapd_conf"`
}

type Portal struct {
	HTTPAddr    string `yaml:"http_addr"`
	DNSAddr     string `yaml:"dns_addr"`
	LandingPage string `yaml:"landing_page"`
	// LandingDir replaces the built-in landing page with a directory.
	LandingDir string `yaml:"landing_dir"`
	Metrics    bool   `yaml:"metrics"`
}

type Timing struct {
	ModeTimeout     time.Duration `yaml:"mode_timeout"`
	DNSInterval     time.Duration `yaml:"dns_interval"`
	GracePeriod     time.Duration `yaml:"grace_period"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	StatusInterval  time.Duration `yaml:"status_interval"`
	StartRetryDelay time.Duration `yaml:"start_retry_delay"`
	StopAttempts    int           `yaml:"stop_attempts"`
	StopRetryDelay  time.Duration `yaml:"stop_retry_delay"`
}

// Announce configures the mDNS service registered once the device has
// joined a network.
type Announce struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Service  string `yaml:"service"`
	Port     int    `yaml:"port"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	p := provision.DefaultConfig()
	return Config{
		Interface: "wlan0",
		AccessPoint: AccessPoint{
			SSID:        p.APSSID,
			Channel:     6,
			Address:     "192.168.4.1/24",
			HostapdConf: "/tmp/hostapd.conf",
		},
		Portal: Portal{
			HTTPAddr:    ":80",
			DNSAddr:     ":53",
			LandingPage: portal.DefaultLanding,
			Metrics:     true,
		},
		Timing: Timing{
			ModeTimeout:     p.ModeTimeout,
			DNSInterval:     p.DNSInterval,
			GracePeriod:     p.GracePeriod,
			ConnectTimeout:  p.ConnectTimeout,
			StatusInterval:  p.StatusInterval,
			StartRetryDelay: p.StartRetryDelay,
			StopAttempts:    p.StopAttempts,
			StopRetryDelay:  p.StopRetryDelay,
		},
		Announce: Announce{
			Service: "_wifiportal._tcp",
			Port:    80,
		},
	}
}

// Load reads the file at path over Default. An empty path returns
// Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes b over Default and validates the result. Unknown keys are
// an error.
func Parse(b []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the access point or the run cannot use.
func (c Config) Validate() error {
	if c.Interface == "" {
		return errors.New("interface is empty")
	}
	ap := c.AccessPoint
	if len(ap.SSID) < provision.MinNameLen || len(ap.SSID) > provision.MaxNameLen {
		return fmt.Errorf("access_point.ssid %q: %w", ap.SSID, provision.ErrNameLength)
	}
	if ap.Password != "" && (len(ap.Password) < provision.MinPassphraseLen || len(ap.Password) > provision.MaxPassphraseLen) {
		return fmt.Errorf("access_point.password: %w", provision.ErrPassphraseLength)
	}
	if ap.Channel < 1 || ap.Channel > 14 {
		return fmt.Errorf("access_point.channel %d: want 1..14", ap.Channel)
	}
	if _, err := c.APAddress(); err != nil {
		return err
	}
	t := c.Timing
	for name, d := range map[string]time.Duration{
		"mode_timeout":      t.ModeTimeout,
		"dns_interval":      t.DNSInterval,
		"grace_period":      t.GracePeriod,
		"connect_timeout":   t.ConnectTimeout,
		"status_interval":   t.StatusInterval,
		"start_retry_delay": t.StartRetryDelay,
		"stop_retry_delay":  t.StopRetryDelay,
	} {
		if d < 0 {
			return fmt.Errorf("timing.%s %v is negative", name, d)
		}
	}
	if t.DNSInterval == 0 || t.StatusInterval == 0 {
		return errors.New("timing: dns_interval and status_interval must be positive")
	}
	if t.StopAttempts < 1 {
		return fmt.Errorf("timing.stop_attempts %d: want at least 1", t.StopAttempts)
	}
	if c.Announce.Enabled && (c.Announce.Port <= 0 || c.Announce.Port > 65535) {
		return fmt.Errorf("announce.port %d out of range", c.Announce.Port)
	}
	return nil
}

// APAddress parses AccessPoint.Address, keeping the host address.
func (c Config) APAddress() (*net.IPNet, error) {
	ip, n, err := net.ParseCIDR(c.AccessPoint.Address)
	if err != nil {
		return nil, fmt.Errorf("access_point.address: %w", err)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("access_point.address %s is not IPv4", ip)
	}
	return &net.IPNet{IP: ip.To4(), Mask: n.Mask}, nil
}

// Provision returns the orchestrator settings.
func (c Config) Provision() provision.Config {
	return provision.Config{
		APSSID:          c.AccessPoint.SSID,
		APPassword:      c.AccessPoint.Password,
		LandingPage:     c.Portal.LandingPage,
		ModeTimeout:     c.Timing.ModeTimeout,
		DNSInterval:     c.Timing.DNSInterval,
		GracePeriod:     c.Timing.GracePeriod,
		ConnectTimeout:  c.Timing.ConnectTimeout,
		StatusInterval:  c.Timing.StatusInterval,
		StartRetryDelay: c.Timing.StartRetryDelay,
		StopAttempts:    c.Timing.StopAttempts,
		StopRetryDelay:  c.Timing.StopRetryDelay,
	}
}
