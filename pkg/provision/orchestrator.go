// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package provision drives a device from a captive portal to a station
// connection: it serves an access point until a client submits valid
// credentials for a network, shuts the access point down and joins that
// network.
package provision

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/u-root/u-root/pkg/ulog"
	"github.com/u-root/wifiportal/pkg/clock"
	"github.com/u-root/wifiportal/pkg/portal"
	"github.com/u-root/wifiportal/pkg/scan"
	"github.com/u-root/wifiportal/pkg/wifi"
)

// Intake routes.
const (
	SetupPath = "/api/setupWiFi"
	ScanPath  = "/api/scan"
)

// Intake responses.
const (
	AcceptedMessage = "WiFi credentials received. This portal will close now."
	InvalidMessage  = "Invalid parameters"
	MissingMessage  = "Missing parameters"
	ClosingMessage  = "Credentials already received"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("provision: orchestrator already ran")

// Config holds the access point identity and the timing of a run.
type Config struct {
	APSSID string
	// APPassword secures the access point with WPA2. Empty means open.
	APPassword  string
	LandingPage string

	ModeTimeout     time.Duration
	DNSInterval     time.Duration
	GracePeriod     time.Duration
	ConnectTimeout  time.Duration
	StatusInterval  time.Duration
	StartRetryDelay time.Duration
	StopAttempts    int
	StopRetryDelay  time.Duration
}

// DefaultConfig returns an open "WiFi-Setup" access point with the
// standard timings.
func DefaultConfig() Config {
	return Config{
		APSSID:          "WiFi-Setup",
		LandingPage:     portal.DefaultLanding,
		ModeTimeout:     DefaultModeTimeout,
		DNSInterval:     50 * time.Millisecond,
		GracePeriod:     2 * time.Second,
		ConnectTimeout:  10 * time.Second,
		StatusInterval:  200 * time.Millisecond,
		StartRetryDelay: time.Second,
		StopAttempts:    3,
		StopRetryDelay:  500 * time.Millisecond,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option {
	return func(o *Orchestrator) { o.cfg = c }
}

// WithClock sets the clock every wait is measured against.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the logger. The default is ulog.Null.
func WithLogger(l ulog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics records the run in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// OnTransition calls f on the goroutine running Run after every state
// change.
func OnTransition(f func(from, to State)) Option {
	return func(o *Orchestrator) { o.onTransition = f }
}

type credential struct {
	ssid       string
	passphrase string
}

type verdict struct {
	status int
	body   string
}

type submission struct {
	credential
	reply chan verdict
}

// Orchestrator runs one provisioning flow. Only the goroutine in Run
// changes its state; HTTP handlers hand submissions to it and wait for
// the verdict.
type Orchestrator struct {
	radio  wifi.Radio
	portal portal.Portal
	clock  clock.Clock
	log    ulog.Logger
	cfg    Config

	metrics      *Metrics
	onTransition func(from, to State)

	state atomic.Uint32
	ran   atomic.Bool

	// listing is written once, before the intake routes are registered.
	listing scan.Listing

	submissions chan submission
	closed      chan struct{}
}

// New returns an Orchestrator in AwaitingCredentials that will drive
// radio and p.
func New(radio wifi.Radio, p portal.Portal, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		radio:       radio,
		portal:      p,
		clock:       clock.Real(),
		log:         ulog.Null,
		cfg:         DefaultConfig(),
		listing:     scan.Listing{},
		submissions: make(chan submission),
		closed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// State returns the current state. It is safe to call from any goroutine.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Listing returns the cached scan served at ScanPath.
func (o *Orchestrator) Listing() scan.Listing {
	return o.listing
}

func (o *Orchestrator) transition(to State) {
	from := o.State()
	if !canTransition(from, to) {
		panic(fmt.Sprintf("provision: illegal transition %v -> %v", from, to))
	}
	o.state.Store(uint32(to))
	o.metrics.State.Set(float64(to))
	o.log.Printf("provision: %v -> %v", from, to)
	if o.onTransition != nil {
		o.onTransition(from, to)
	}
}

// Run serves the captive portal until it accepts credentials, then joins
// that network and reports the outcome. Run blocks for the whole flow and
// only returns an error when called a second time.
func (o *Orchestrator) Run() (Report, error) {
	if !o.ran.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRun
	}
	start := o.clock.Now()

	c := o.awaitCredentials()
	o.shutdownAccessPoint()
	r := o.connect(c)
	r.Elapsed = o.clock.Now().Sub(start)
	return r, nil
}

func (o *Orchestrator) awaitCredentials() credential {
	if err := o.radio.SetMode(wifi.ModeAccessPoint); err != nil {
		o.log.Printf("provision: setting access point mode: %v", err)
	}
	if !WaitForMode(o.clock, o.radio, wifi.ModeAccessPoint, o.cfg.ModeTimeout) {
		o.log.Printf("provision: radio not in access point mode after %v, continuing", o.cfg.ModeTimeout)
	}

	l, err := scan.Networks(o.radio, o.cfg.APSSID)
	if err != nil {
		o.log.Printf("provision: %v", err)
	}
	o.listing = l
	o.metrics.Networks.Set(float64(len(l)))
	o.log.Printf("provision: found %d networks", len(l))

	for {
		err := o.startPortal()
		if err == nil {
			break
		}
		o.log.Printf("provision: starting captive portal: %v", err)
		o.clock.Sleep(o.cfg.StartRetryDelay)
	}
	o.portal.RegisterRoute(SetupPath, http.MethodPost, o.handleSetup)
	o.portal.RegisterRoute(ScanPath, http.MethodGet, o.handleScan)
	o.log.Printf("Captive Portal started. Waiting for WiFi credentials...")

	for {
		select {
		case s := <-o.submissions:
			if o.consider(s) {
				return s.credential
			}
		default:
			o.portal.ProcessDNS()
			o.clock.Sleep(o.cfg.DNSInterval)
		}
	}
}

func (o *Orchestrator) startPortal() error {
	var err error
	if o.cfg.APPassword == "" {
		err = o.portal.InitializeOpen(o.cfg.APSSID, o.cfg.LandingPage)
	} else {
		err = o.portal.InitializeSecured(o.cfg.APSSID, o.cfg.APPassword, o.cfg.LandingPage)
	}
	if err != nil {
		return err
	}
	return o.portal.StartAccessPoint()
}

// consider answers s and reports whether its credentials were accepted.
func (o *Orchestrator) consider(s submission) bool {
	if err := CheckCredential(s.ssid, s.passphrase); err != nil {
		o.log.Printf("provision: rejected credentials for %q: %v", s.ssid, err)
		o.metrics.Submissions.WithLabelValues(resultInvalid).Inc()
		s.reply <- verdict{http.StatusBadRequest, InvalidMessage}
		return false
	}
	o.log.Printf("provision: received credentials for %q", s.ssid)
	o.metrics.Submissions.WithLabelValues(resultAccepted).Inc()
	close(o.closed)
	o.transition(CredentialsAccepted)
	s.reply <- verdict{http.StatusOK, AcceptedMessage}
	o.transition(ApShuttingDown)
	return true
}

func (o *Orchestrator) handleSetup(req *portal.Request, w portal.Responder) {
	ssid, okName := req.Param("ssid")
	pass, okPass := req.Param("password")
	if !okName || !okPass {
		o.metrics.Submissions.WithLabelValues(resultMissing).Inc()
		w.Send(http.StatusBadRequest, "text/plain", MissingMessage)
		return
	}

	s := submission{credential: credential{ssid, pass}, reply: make(chan verdict, 1)}
	select {
	case o.submissions <- s:
	case <-o.closed:
		o.metrics.Submissions.WithLabelValues(resultLate).Inc()
		w.Send(http.StatusConflict, "text/plain", ClosingMessage)
		return
	}
	v := <-s.reply
	w.Send(v.status, "text/plain", v.body)
}

func (o *Orchestrator) handleScan(_ *portal.Request, w portal.Responder) {
	w.Send(http.StatusOK, "application/json", string(o.listing.JSON()))
}

func (o *Orchestrator) shutdownAccessPoint() {
	// Answer DNS a little longer so the client sees the acknowledgement.
	grace := clock.NewDeadline(o.clock, o.cfg.GracePeriod)
	for !grace.Expired() {
		o.portal.ProcessDNS()
		o.clock.Sleep(min(o.cfg.DNSInterval, grace.Remaining()))
	}

	for attempt := 1; attempt <= o.cfg.StopAttempts; attempt++ {
		if o.portal.StopAccessPoint() {
			o.log.Printf("Captive Portal stopped.")
			return
		}
		o.log.Printf("provision: stopping access point, attempt %d of %d failed", attempt, o.cfg.StopAttempts)
		if attempt < o.cfg.StopAttempts {
			o.clock.Sleep(o.cfg.StopRetryDelay)
		}
	}
	o.log.Printf("provision: access point may still be up, connecting anyway")
}

func (o *Orchestrator) connect(c credential) Report {
	o.transition(ConnectingToStation)
	if err := o.radio.SetMode(wifi.ModeStation); err != nil {
		o.log.Printf("provision: setting station mode: %v", err)
	}
	if !WaitForMode(o.clock, o.radio, wifi.ModeStation, o.cfg.ModeTimeout) {
		o.log.Printf("provision: radio not in station mode after %v, continuing", o.cfg.ModeTimeout)
	}

	o.log.Printf("Connecting to WiFi: %s", c.ssid)
	if err := o.radio.Connect(c.ssid, c.passphrase); err != nil {
		o.log.Printf("provision: %v", err)
		return o.fail(c)
	}
	deadline := clock.NewDeadline(o.clock, o.cfg.ConnectTimeout)
	for o.radio.Status() != wifi.StatusConnected {
		if deadline.Expired() {
			return o.fail(c)
		}
		o.clock.Sleep(o.cfg.StatusInterval)
	}

	o.transition(Connected)
	o.metrics.Connections.WithLabelValues("connected").Inc()
	r := Report{State: Connected, SSID: c.ssid}
	if id, err := o.radio.GetID(); err == nil && id != "" {
		r.SSID = id
	}
	ip, err := o.radio.LocalIP()
	if err != nil {
		o.log.Printf("provision: local address: %v", err)
	}
	r.LocalIP = ip
	o.log.Printf("Connected to WiFi")
	o.log.Printf("IP Address: %v", r.LocalIP)
	o.log.Printf("SSID: %s", r.SSID)
	return r
}

func (o *Orchestrator) fail(c credential) Report {
	o.transition(ConnectionFailed)
	o.metrics.Connections.WithLabelValues("failed").Inc()
	o.log.Printf("Failed to connect to WiFi")
	return Report{State: ConnectionFailed, SSID: c.ssid}
}
