// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/u-root/wifiportal/pkg/portal"
)

var _ = portal.Portal(&fakePortal{})

type route struct {
	path   string
	method string
}

// fakePortal records what the orchestrator asks of the portal. Routes can
// be invoked with Do once the access point has started.
type fakePortal struct {
	mu sync.Mutex

	startErrs   []error
	stopResults []bool

	ssid     string
	password string
	landing  string
	up       bool
	starts   int
	stops    int
	ticks    int
	routes   map[route]portal.Handler
	ready    chan struct{}
}

func newFakePortal() *fakePortal {
	return &fakePortal{routes: map[route]portal.Handler{}, ready: make(chan struct{})}
}

func (p *fakePortal) InitializeOpen(ssid, landingPage string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ssid, p.password, p.landing = ssid, "", landingPage
	return nil
}

func (p *fakePortal) InitializeSecured(ssid, password, landingPage string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ssid, p.password, p.landing = ssid, password, landingPage
	return nil
}

func (p *fakePortal) StartAccessPoint() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	if len(p.startErrs) > 0 {
		err := p.startErrs[0]
		p.startErrs = p.startErrs[1:]
		if err != nil {
			return err
		}
	}
	p.up = true
	return nil
}

func (p *fakePortal) StopAccessPoint() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	ok := true
	if len(p.stopResults) > 0 {
		ok = p.stopResults[0]
		p.stopResults = p.stopResults[1:]
	}
	if ok {
		p.up = false
	}
	return ok
}

func (p *fakePortal) ProcessDNS() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks++
}

func (p *fakePortal) RegisterRoute(path, method string, h portal.Handler) {
	p.mu.Lock()
	p.routes[route{path, method}] = h
	n := len(p.routes)
	p.mu.Unlock()
	if n == 2 {
		close(p.ready)
	}
}

type recorded struct {
	status      int
	contentType string
	body        string
}

func (r *recorded) Send(status int, contentType, body string) {
	r.status, r.contentType, r.body = status, contentType, body
}

var errUnreachable = errors.New("route not reachable")

// Do calls the handler for path and method the way an HTTP client would
// reach it: only while the access point is up.
func (p *fakePortal) Do(method, path string, params url.Values) (*recorded, error) {
	p.mu.Lock()
	h, ok := p.routes[route{path, method}]
	up := p.up
	p.mu.Unlock()
	if !ok || !up {
		return nil, errUnreachable
	}
	r := &recorded{}
	h(&portal.Request{Method: method, Path: path, Params: params}, r)
	return r, nil
}

func (p *fakePortal) submit(ssid, password string) (*recorded, error) {
	return p.Do(http.MethodPost, SetupPath, url.Values{"ssid": {ssid}, "password": {password}})
}

func (p *fakePortal) counts() (starts, stops, ticks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts, p.stops, p.ticks
}
