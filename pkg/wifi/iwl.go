// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package wifi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/u-root/u-root/pkg/ulog"
	"github.com/u-root/wifiportal/pkg/dhclient"
	"github.com/vishvananda/netlink"
)

var _ = Radio(&IWLWorker{})

// IWLWorker implements Radio with the wireless tools: iwlist for scans,
// iw and wireless extension ioctls for mode changes, wpa_supplicant and
// DHCP for station connections.
type IWLWorker struct {
	Interface string
	// ConfPath is where the wpa_supplicant configuration is written.
	ConfPath string
	// DHCP bounds each lease request made after association.
	DHCP dhclient.Config

	stdout, stderr io.Writer
	log            ulog.Logger
	native         *NativeWorker

	mu         sync.Mutex
	status     Status
	cancel     context.CancelFunc
	supplicant *exec.Cmd
}

func NewIWLWorker(stdout, stderr io.Writer, l ulog.Logger, i string) (*IWLWorker, error) {
	link, err := netlink.LinkByName(i)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", i, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return nil, fmt.Errorf("%s up: %w", i, err)
	}
	w := &IWLWorker{
		Interface: i,
		ConfPath:  "/tmp/wifi.conf",
		DHCP:      dhclient.DefaultConfig(),
		stdout:    stdout,
		stderr:    stderr,
		log:       l,
	}
	// Drivers without wireless extensions still work through iw.
	if n, err := NewNativeWorker(i); err == nil {
		w.native = n
	} else {
		l.Printf("wifi: no wireless extensions on %s: %v", i, err)
	}
	return w, nil
}

func (w *IWLWorker) run(name string, args ...string) ([]byte, error) {
	// Need a local copy of exec's output to parse it
	var execOutput bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout, cmd.Stderr = io.MultiWriter(&execOutput, w.stdout), w.stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return execOutput.Bytes(), nil
}

func (w *IWLWorker) Scan() ([]Option, error) {
	o, err := w.run("iwlist", w.Interface, "scanning")
	if err != nil {
		return nil, err
	}
	return parseIwlistOut(o), nil
}

func (w *IWLWorker) Mode() (Mode, error) {
	if w.native != nil {
		if m, err := w.native.Mode(); err == nil {
			return m, nil
		}
	}
	o, err := w.run("iw", "dev", w.Interface, "info")
	if err != nil {
		return ModeOff, err
	}
	return parseIwInfoType(o), nil
}

// SetMode takes the link down, switches the interface type and brings it
// back up. Leaving station mode stops any running supplicant.
func (w *IWLWorker) SetMode(m Mode) error {
	if m != ModeStation {
		w.stopSupplicant()
	}
	link, err := netlink.LinkByName(w.Interface)
	if err != nil {
		return err
	}
	if err := netlink.LinkSetDown(link); err != nil {
		return fmt.Errorf("%s down: %w", w.Interface, err)
	}
	defer func() {
		if err := netlink.LinkSetUp(link); err != nil {
			w.log.Printf("wifi: %s up: %v", w.Interface, err)
		}
	}()
	if w.native != nil {
		if err := w.native.SetMode(m); err == nil {
			return nil
		}
	}
	iwType := "managed"
	if m == ModeAccessPoint {
		iwType = "__ap"
	}
	_, err = w.run("iw", "dev", w.Interface, "set", "type", iwType)
	return err
}

func (w *IWLWorker) GetID() (string, error) {
	o, err := w.run("iwgetid", "-r", w.Interface)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(o)), nil
}

func (w *IWLWorker) LocalIP() (net.IP, error) {
	link, err := netlink.LinkByName(w.Interface)
	if err != nil {
		return nil, err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, ErrNotConnected
	}
	return addrs[0].IP, nil
}

func (w *IWLWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *IWLWorker) setStatus(s Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
}

// Connect writes the supplicant configuration, starts wpa_supplicant and
// requests a lease in the background. Status turns StatusConnected once
// the lease is configured on the interface.
func (w *IWLWorker) Connect(essid, pass string) error {
	args := []string{essid}
	if pass != "" {
		args = append(args, pass)
	}
	conf, err := generateConfig(args...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(w.ConfPath, conf, 0o600); err != nil {
		return fmt.Errorf("%s: %w", w.ConfPath, err)
	}

	w.stopSupplicant()
	cmd := exec.Command("wpa_supplicant", "-i"+w.Interface, "-c"+w.ConfPath)
	cmd.Stdout, cmd.Stderr = w.stdout, w.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("wpa_supplicant: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.supplicant, w.cancel, w.status = cmd, cancel, StatusConnecting
	w.mu.Unlock()

	go func() {
		if err := cmd.Wait(); err != nil {
			w.log.Printf("wifi: wpa_supplicant exited: %v", err)
		}
	}()

	// dhclient might never return on incorrect passwords, so it is
	// bounded by the DHCP config and by stopSupplicant.
	go func() {
		err := dhclient.Configure(ctx, w.Interface, w.DHCP, w.log)
		if ctx.Err() != nil {
			// Superseded by another Connect or a mode change.
			return
		}
		if err != nil {
			w.log.Printf("wifi: %s: %v", w.Interface, err)
			w.setStatus(StatusConnectFailed)
			return
		}
		w.setStatus(StatusConnected)
	}()
	return nil
}

func (w *IWLWorker) stopSupplicant() {
	w.mu.Lock()
	cmd, cancel := w.supplicant, w.cancel
	w.supplicant, w.cancel = nil, nil
	w.status = StatusIdle
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			w.log.Printf("wifi: stopping wpa_supplicant: %v", err)
		}
	}
}
