// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package announce advertises a provisioned device over mDNS on the
// network it joined.
package announce

import (
	"errors"
	"fmt"
	"net"

	"github.com/enbility/zeroconf/v3"
	"github.com/u-root/u-root/pkg/ulog"

	"github.com/u-root/wifiportal/pkg/provision"
)

const (
	DefaultService = "_wifiportal._tcp"
	Domain         = "local."
)

// Service describes what to advertise.
type Service struct {
	Instance string
	Service  string
	Port     int
	// Interface limits the announcement to one interface. Empty means
	// all of them.
	Interface string
	Text      []string
}

// Announcer owns a registered mDNS service.
type Announcer struct {
	server *zeroconf.Server
}

// Text returns TXT records describing a run.
func Text(r provision.Report) []string {
	txt := []string{"state=" + r.State.String(), "ssid=" + r.SSID}
	if r.LocalIP != nil {
		txt = append(txt, "addr="+r.LocalIP.String())
	}
	return txt
}

func (s *Service) check() error {
	if s.Instance == "" {
		return errors.New("announce: empty instance name")
	}
	if s.Service == "" {
		s.Service = DefaultService
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("announce: port %d out of range", s.Port)
	}
	return nil
}

// Start registers s. Call Shutdown to withdraw it.
func Start(s Service, l ulog.Logger) (*Announcer, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var ifaces []net.Interface
	if s.Interface != "" {
		iface, err := net.InterfaceByName(s.Interface)
		if err != nil {
			return nil, fmt.Errorf("announce: %w", err)
		}
		ifaces = []net.Interface{*iface}
	}
	server, err := zeroconf.Register(s.Instance, s.Service, Domain, s.Port, s.Text, ifaces)
	if err != nil {
		return nil, fmt.Errorf("announce: registering %s.%s: %w", s.Instance, s.Service, err)
	}
	l.Printf("announce: advertising %s.%s%s on port %d", s.Instance, s.Service, Domain, s.Port)
	return &Announcer{server: server}, nil
}

// Shutdown withdraws the service. It is safe to call more than once.
func (a *Announcer) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}
