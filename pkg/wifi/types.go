// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wifi

import (
	"errors"
	"net"
)

// SecProto is the security protocol a scanned network advertises.
type SecProto int

const (
	NoEnc SecProto = iota
	WpaPsk
	WpaEap
	NotSupportedProto
)

func (p SecProto) String() string {
	switch p {
	case NoEnc:
		return "open"
	case WpaPsk:
		return "WPA-PSK"
	case WpaEap:
		return "WPA-EAP"
	}
	return "unsupported"
}

// Option is one network seen by a scan. Scans report every cell, so the
// same Essid can appear more than once.
type Option struct {
	Essid     string
	AuthSuite SecProto
}

// Mode is the operating mode of the radio.
type Mode int

const (
	ModeOff Mode = iota
	ModeStation
	ModeAccessPoint
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeStation:
		return "station"
	case ModeAccessPoint:
		return "access-point"
	}
	return "unknown"
}

// Status is the station connection status.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusConnectFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusConnectFailed:
		return "connect-failed"
	}
	return "unknown"
}

// ErrNotConnected is returned by LocalIP when the station has no address.
var ErrNotConnected = errors.New("wifi: station not connected")

// Scanner lists visible networks. Scan may block for as long as the
// hardware needs.
type Scanner interface {
	Scan() ([]Option, error)
}

// ModeReader reports the current radio mode.
type ModeReader interface {
	Mode() (Mode, error)
}

// Radio is everything the provisioning flow needs from the WiFi hardware.
type Radio interface {
	Scanner
	ModeReader

	// SetMode requests a mode change. The change may complete after
	// SetMode returns; poll Mode to observe it.
	SetMode(m Mode) error

	// Connect starts joining essid and returns without waiting for the
	// association. Progress is reported by Status.
	Connect(essid, pass string) error

	Status() Status

	// GetID returns the essid the station is associated with.
	GetID() (string, error)

	LocalIP() (net.IP, error)
}
