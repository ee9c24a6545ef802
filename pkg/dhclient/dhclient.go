// Copyright 2019 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dhclient requests and configures a DHCP lease on one
// interface once it has associated with a network.
package dhclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/u-root/u-root/pkg/dhclient"
	"github.com/u-root/u-root/pkg/ulog"
	"github.com/vishvananda/netlink"
)

// ErrNoLease is returned when every request finished without a lease.
var ErrNoLease = errors.New("dhclient: no lease")

// Config bounds a lease request.
type Config struct {
	// Timeout is the per packet timeout.
	Timeout time.Duration
	Retries int
	// LinkUpTimeout is how long to wait for carrier before sending.
	LinkUpTimeout time.Duration
	IPv4          bool
	IPv6          bool
	Verbose       bool
}

// DefaultConfig asks for an IPv4 lease only.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		Retries:       2,
		LinkUpTimeout: 30 * time.Second,
		IPv4:          true,
	}
}

// Deadline is the longest Configure can take with c.
func (c Config) Deadline() time.Duration {
	return c.LinkUpTimeout + c.Timeout*time.Duration(1<<uint(c.Retries))
}

// Configure sends DHCP requests on ifName and configures the first lease
// it gets. It returns once the interface is configured, every request has
// failed, or ctx is done.
func Configure(ctx context.Context, ifName string, c Config, l ulog.Logger) error {
	iface, err := netlink.LinkByName(ifName)
	if err != nil {
		return fmt.Errorf("can't find link %s: %w", ifName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Deadline())
	defer cancel()

	dc := dhclient.Config{
		Timeout: c.Timeout,
		Retries: c.Retries,
	}
	if c.Verbose {
		dc.LogLevel = dhclient.LogSummary
	}
	r := dhclient.SendRequests(ctx, []netlink.Link{iface}, c.IPv4, c.IPv6, dc, c.LinkUpTimeout)

	lastErr := ErrNoLease
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("done with dhclient on %s: %w", ifName, ctx.Err())

		case result, ok := <-r:
			if !ok {
				return lastErr
			}
			if result.Err != nil {
				lastErr = fmt.Errorf("could not configure %s: %w", ifName, result.Err)
				l.Printf("dhclient: %v", lastErr)
				continue
			}
			if err := result.Lease.Configure(); err != nil {
				lastErr = fmt.Errorf("could not configure %s: %w", ifName, err)
				l.Printf("dhclient: %v", lastErr)
				continue
			}
			l.Printf("dhclient: configured %s with %s", ifName, result.Lease)
			return nil
		}
	}
}
