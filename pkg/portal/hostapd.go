// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package portal

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/u-root/u-root/pkg/ulog"
	"github.com/vishvananda/netlink"
)

// APConfig describes the access point to bring up.
type APConfig struct {
	Interface string
	SSID      string
	// Password is empty for an open access point.
	Password string
	Channel  int
	// Address is the device's own address on the access point network.
	Address *net.IPNet
}

// AccessPoint runs the radio side of the portal.
type AccessPoint interface {
	Start(c APConfig) error
	Stop() error
}

// Hostapd is an AccessPoint backed by a hostapd process.
type Hostapd struct {
	// ConfPath is where the generated hostapd.conf is written.
	ConfPath string
	Stdout   io.Writer
	Stderr   io.Writer
	Log      ulog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	addr *netlink.Addr
	link netlink.Link
}

var _ AccessPoint = &Hostapd{}

func hostapdConfig(c APConfig) ([]byte, error) {
	if c.SSID == "" || len(c.SSID) > 32 {
		return nil, fmt.Errorf("portal: bad access point ssid %q", c.SSID)
	}
	channel := c.Channel
	if channel == 0 {
		channel = 6
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "interface=%s\n", c.Interface)
	fmt.Fprintf(&b, "driver=nl80211\n")
	fmt.Fprintf(&b, "ssid2=%s\n", ssid2(c.SSID))
	fmt.Fprintf(&b, "hw_mode=g\n")
	fmt.Fprintf(&b, "channel=%d\n", channel)
	fmt.Fprintf(&b, "auth_algs=1\n")
	if c.Password != "" {
		if len(c.Password) < 8 || len(c.Password) > 63 || strings.ContainsAny(c.Password, "\r\n") {
			return nil, ErrBadPassword
		}
		fmt.Fprintf(&b, "wpa=2\n")
		fmt.Fprintf(&b, "wpa_key_mgmt=WPA-PSK\n")
		fmt.Fprintf(&b, "rsn_pairwise=CCMP\n")
		fmt.Fprintf(&b, "wpa_passphrase=%s\n", c.Password)
	}
	return b.Bytes(), nil
}

// ssid2 quotes s for hostapd's ssid2 option, falling back to hex for
// names that cannot be quoted.
func ssid2(s string) string {
	for _, r := range s {
		if r == '"' || r < 0x20 || r > 0x7e {
			return hex.EncodeToString([]byte(s))
		}
	}
	return `"` + s + `"`
}

// Start assigns the portal address to the interface and starts hostapd.
func (h *Hostapd) Start(c APConfig) error {
	conf, err := hostapdConfig(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(h.ConfPath, conf, 0o600); err != nil {
		return fmt.Errorf("%s: %w", h.ConfPath, err)
	}

	link, err := netlink.LinkByName(c.Interface)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Interface, err)
	}
	addr := &netlink.Addr{IPNet: c.Address}
	if err := netlink.AddrAdd(link, addr); err != nil && !errors.Is(err, syscall.EEXIST) {
		return fmt.Errorf("%s: add %v: %w", c.Interface, c.Address, err)
	}

	cmd := exec.Command("hostapd", h.ConfPath)
	cmd.Stdout, cmd.Stderr = h.Stdout, h.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("hostapd: %w", err)
	}

	h.mu.Lock()
	h.cmd, h.addr, h.link = cmd, addr, link
	h.mu.Unlock()

	go func() {
		if err := cmd.Wait(); err != nil {
			h.Log.Printf("portal: hostapd exited: %v", err)
		}
	}()
	return nil
}

// Stop kills hostapd and removes the portal address. Stopping twice is
// harmless.
func (h *Hostapd) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil && h.cmd.Process != nil {
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("hostapd: %w", err)
		}
	}
	h.cmd = nil
	if h.addr != nil {
		if err := netlink.AddrDel(h.link, h.addr); err != nil && !errors.Is(err, syscall.EADDRNOTAVAIL) {
			return fmt.Errorf("del %v: %w", h.addr, err)
		}
	}
	h.addr, h.link = nil, nil
	return nil
}
