// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package portal is the captive portal a device runs while it waits for
// WiFi credentials: an access point, a DNS responder that sends every
// name to the device, and an HTTP server for the landing page and any
// registered routes.
package portal

import (
	"errors"
	"net/http"
	"net/url"
)

var (
	// ErrNotInitialized is returned by StartAccessPoint before one of
	// the Initialize calls.
	ErrNotInitialized = errors.New("portal: access point not initialized")
	// ErrBadPassword is returned for secured access point passwords
	// outside WPA2's 8..63 character range.
	ErrBadPassword = errors.New("portal: access point password must be 8..63 characters")
)

// Request is what a route handler sees of an HTTP request.
type Request struct {
	Method string
	Path   string
	// Params holds body parameters for POST and query parameters for GET.
	Params url.Values
}

// Param returns the named parameter and whether it was sent at all.
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.Params[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Responder writes the single response to a request.
type Responder interface {
	Send(status int, contentType, body string)
}

// Handler serves one route.
type Handler func(req *Request, w Responder)

// Portal is the service the provisioning flow drives.
type Portal interface {
	InitializeOpen(ssid, landingPage string) error
	InitializeSecured(ssid, password, landingPage string) error

	// StartAccessPoint brings the access point up and starts serving DNS
	// and HTTP. Routes are reachable only after it returns nil.
	StartAccessPoint() error

	// StopAccessPoint tears the access point down and reports whether it
	// is down. Stopping a stopped access point returns true.
	StopAccessPoint() bool

	// ProcessDNS answers DNS queries that are already waiting and
	// returns without blocking. Call it at short, regular intervals
	// while the access point is up.
	ProcessDNS()

	RegisterRoute(path, method string, h Handler)
}

type responder struct {
	w    http.ResponseWriter
	sent bool
}

func (r *responder) Send(status int, contentType, body string) {
	if r.sent {
		return
	}
	r.sent = true
	r.w.Header().Set("Content-Type", contentType)
	r.w.WriteHeader(status)
	_, _ = r.w.Write([]byte(body))
}
