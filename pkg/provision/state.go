// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"fmt"
	"net"
	"time"
)

// State is where a provisioning run is. The only transitions are
//
//	AwaitingCredentials -> CredentialsAccepted -> ApShuttingDown
//	  -> ConnectingToStation -> Connected | ConnectionFailed
type State uint8

const (
	AwaitingCredentials State = iota
	CredentialsAccepted
	ApShuttingDown
	ConnectingToStation
	Connected
	ConnectionFailed
)

func (s State) String() string {
	switch s {
	case AwaitingCredentials:
		return "AWAITING_CREDENTIALS"
	case CredentialsAccepted:
		return "CREDENTIALS_ACCEPTED"
	case ApShuttingDown:
		return "AP_SHUTTING_DOWN"
	case ConnectingToStation:
		return "CONNECTING_TO_STATION"
	case Connected:
		return "CONNECTED"
	case ConnectionFailed:
		return "CONNECTION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Connected || s == ConnectionFailed
}

func canTransition(from, to State) bool {
	switch from {
	case AwaitingCredentials:
		return to == CredentialsAccepted
	case CredentialsAccepted:
		return to == ApShuttingDown
	case ApShuttingDown:
		return to == ConnectingToStation
	case ConnectingToStation:
		return to == Connected || to == ConnectionFailed
	}
	return false
}

// Report is the outcome of a run. It never carries the passphrase.
type Report struct {
	State   State
	SSID    string
	LocalIP net.IP
	Elapsed time.Duration
}

// Success reports whether the station connected.
func (r Report) Success() bool {
	return r.State == Connected
}

func (r Report) String() string {
	if r.Success() {
		return fmt.Sprintf("connected to %q as %v after %v", r.SSID, r.LocalIP, r.Elapsed)
	}
	return fmt.Sprintf("failed to connect to %q after %v", r.SSID, r.Elapsed)
}
