// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/u-root/wifiportal/pkg/clock"
	"github.com/u-root/wifiportal/pkg/tlog"
	"github.com/u-root/wifiportal/pkg/wifi"
)

type result struct {
	report Report
	err    error
}

type harness struct {
	o       *Orchestrator
	radio   *wifi.StubWorker
	portal  *fakePortal
	clock   *clock.FakeClock
	metrics *Metrics
	log     *tlog.Recorder

	// states is written on the Run goroutine; read it after done.
	states []State
	done   chan result
}

func newHarness(t *testing.T, radio *wifi.StubWorker, cfg Config) *harness {
	t.Helper()
	h := &harness{
		radio:   radio,
		portal:  newFakePortal(),
		clock:   clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		metrics: NewMetrics(prometheus.NewRegistry()),
		log:     &tlog.Recorder{Test: t},
		done:    make(chan result, 1),
	}
	h.o = New(radio, h.portal,
		WithConfig(cfg),
		WithClock(h.clock),
		WithLogger(h.log),
		WithMetrics(h.metrics),
		OnTransition(func(_, to State) { h.states = append(h.states, to) }),
	)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	go func() {
		r, err := h.o.Run()
		h.done <- result{r, err}
	}()
	select {
	case <-h.portal.ready:
	case <-time.After(10 * time.Second):
		t.Fatal("intake routes never registered")
	}
}

func (h *harness) wait(t *testing.T) Report {
	t.Helper()
	select {
	case r := <-h.done:
		require.NoError(t, r.err)
		return r.report
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
	return Report{}
}

func TestProvisionConnects(t *testing.T) {
	radio := wifi.NewStubWorker("", wifi.Option{Essid: "HomeNet"})
	radio.ModeLag = 3
	radio.ConnectAfter = 2
	h := newHarness(t, radio, DefaultConfig())

	_, err := h.portal.submit("HomeNet", "longenough1")
	require.ErrorIs(t, err, errUnreachable, "intake reachable before the access point started")

	h.start(t)
	assert.Equal(t, AwaitingCredentials, h.o.State())

	resp, err := h.portal.submit("HomeNet", "short")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "text/plain", resp.contentType)
	assert.Equal(t, InvalidMessage, resp.body)
	assert.Equal(t, AwaitingCredentials, h.o.State())

	resp, err = h.portal.Do(http.MethodPost, SetupPath, url.Values{"ssid": {"HomeNet"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, MissingMessage, resp.body)
	assert.Equal(t, AwaitingCredentials, h.o.State())

	resp, err = h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, AcceptedMessage, resp.body)

	r := h.wait(t)
	assert.Equal(t, Connected, r.State)
	assert.True(t, r.Success())
	assert.Equal(t, "HomeNet", r.SSID)
	assert.Equal(t, "192.168.1.23", r.LocalIP.String())

	assert.Equal(t, []State{CredentialsAccepted, ApShuttingDown, ConnectingToStation, Connected}, h.states)
	assert.Equal(t, []string{"HomeNet"}, radio.Connected())
	assert.Equal(t, []wifi.Mode{wifi.ModeAccessPoint, wifi.ModeStation}, radio.Modes())

	starts, stops, ticks := h.portal.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
	// The grace period alone is 40 ticks.
	assert.GreaterOrEqual(t, ticks, 40)
	assert.Equal(t, "WiFi-Setup", h.portal.ssid)
	assert.Empty(t, h.portal.password)

	assert.True(t, h.log.Contains("Connected to WiFi"))
	assert.False(t, h.log.Contains("longenough1"), "passphrase logged")

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Submissions.WithLabelValues(resultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Submissions.WithLabelValues(resultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Submissions.WithLabelValues(resultMissing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Connections.WithLabelValues("connected")))
	assert.Equal(t, float64(Connected), testutil.ToFloat64(h.metrics.State))
}

func TestProvisionConnectionFails(t *testing.T) {
	radio := wifi.NewStubWorker("")
	radio.ConnectAfter = -1
	h := newHarness(t, radio, DefaultConfig())
	h.start(t)

	resp, err := h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.status)

	before := h.clock.Elapsed()
	r := h.wait(t)
	assert.Equal(t, ConnectionFailed, r.State)
	assert.False(t, r.Success())
	assert.Nil(t, r.LocalIP)
	assert.GreaterOrEqual(t, h.clock.Elapsed()-before, 10*time.Second)
	assert.Equal(t, ConnectionFailed, h.states[len(h.states)-1])
	assert.True(t, h.log.Contains("Failed to connect to WiFi"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Connections.WithLabelValues("failed")))
}

func TestProvisionScanListing(t *testing.T) {
	radio := wifi.NewStubWorker("",
		wifi.Option{Essid: "HomeNet"},
		wifi.Option{Essid: "WiFi-Setup"},
		wifi.Option{Essid: ""},
		wifi.Option{Essid: "Cafe"},
		wifi.Option{Essid: "HomeNet"},
	)
	h := newHarness(t, radio, DefaultConfig())
	h.start(t)

	resp, err := h.portal.Do(http.MethodGet, ScanPath, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "application/json", resp.contentType)
	assert.Equal(t, `["HomeNet","Cafe"]`, resp.body)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Networks))

	_, err = h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	h.wait(t)
}

func TestProvisionScanError(t *testing.T) {
	radio := wifi.NewStubWorker("")
	radio.ScanErr = errors.New("iwlist: no such device")
	h := newHarness(t, radio, DefaultConfig())

	rec := &recorded{}
	h.o.handleScan(nil, rec)
	assert.Equal(t, "[]", rec.body, "listing before any scan")

	h.start(t)
	resp, err := h.portal.Do(http.MethodGet, ScanPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.body)
	assert.True(t, h.log.Contains("no such device"))

	_, err = h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	h.wait(t)
}

func TestProvisionSecuredAccessPoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APSSID = "Setup-1234"
	cfg.APPassword = "portalpass"
	h := newHarness(t, wifi.NewStubWorker(""), cfg)
	h.start(t)
	assert.Equal(t, "Setup-1234", h.portal.ssid)
	assert.Equal(t, "portalpass", h.portal.password)

	_, err := h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	h.wait(t)
}

func TestProvisionRetriesStart(t *testing.T) {
	h := newHarness(t, wifi.NewStubWorker(""), DefaultConfig())
	h.portal.startErrs = []error{errors.New("hostapd: exit status 1"), nil}
	h.start(t)

	starts, _, _ := h.portal.counts()
	assert.Equal(t, 2, starts)
	assert.True(t, h.log.Contains("exit status 1"))

	_, err := h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	h.wait(t)
}

func TestProvisionStopFailure(t *testing.T) {
	h := newHarness(t, wifi.NewStubWorker(""), DefaultConfig())
	h.portal.stopResults = []bool{false, false, false}
	h.start(t)

	_, err := h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	r := h.wait(t)
	assert.Equal(t, Connected, r.State, "flow must continue past a stuck access point")

	_, stops, _ := h.portal.counts()
	assert.Equal(t, 3, stops)
	assert.True(t, h.log.Contains("connecting anyway"))

	// The access point is still up, so a late client can reach intake.
	resp, err := h.portal.submit("OtherNet", "longenough2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, ClosingMessage, resp.body)
	assert.Equal(t, []string{"HomeNet"}, h.radio.Connected())
}

func TestProvisionStopRetrySucceeds(t *testing.T) {
	h := newHarness(t, wifi.NewStubWorker(""), DefaultConfig())
	h.portal.stopResults = []bool{false, true}
	h.start(t)

	_, err := h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	h.wait(t)

	_, stops, _ := h.portal.counts()
	assert.Equal(t, 2, stops)
	assert.True(t, h.log.Contains("Captive Portal stopped."))
	// Stopping a stopped access point is harmless.
	assert.True(t, h.portal.StopAccessPoint())
}

func TestRunTwice(t *testing.T) {
	radio := wifi.NewStubWorker("")
	h := newHarness(t, radio, DefaultConfig())
	h.start(t)
	_, err := h.portal.submit("HomeNet", "longenough1")
	require.NoError(t, err)
	h.wait(t)

	modes := radio.Modes()
	starts, stops, _ := h.portal.counts()
	_, err = h.o.Run()
	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Equal(t, modes, radio.Modes())
	s2, st2, _ := h.portal.counts()
	assert.Equal(t, starts, s2)
	assert.Equal(t, stops, st2)
}

func TestIllegalTransition(t *testing.T) {
	o := New(wifi.NewStubWorker(""), newFakePortal())
	assert.Panics(t, func() { o.transition(Connected) })
	assert.Equal(t, AwaitingCredentials, o.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_CREDENTIALS", AwaitingCredentials.String())
	assert.Equal(t, "CONNECTION_FAILED", ConnectionFailed.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
	assert.True(t, Connected.Terminal())
	assert.False(t, ApShuttingDown.Terminal())
}
