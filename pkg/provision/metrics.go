// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Submission results.
const (
	resultAccepted = "accepted"
	resultInvalid  = "invalid"
	resultMissing  = "missing"
	resultLate     = "late"
)

// Metrics counts what a run did.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Connections *prometheus.CounterVec
	Networks    prometheus.Gauge
	State       prometheus.Gauge
}

// NewMetrics registers the provisioning metrics with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wifiportal",
			Name:      "credential_submissions_total",
			Help:      "Credential submissions by result.",
		}, []string{"result"}),
		Connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wifiportal",
			Name:      "station_connections_total",
			Help:      "Station connection attempts by result.",
		}, []string{"result"}),
		Networks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wifiportal",
			Name:      "scanned_networks",
			Help:      "Networks in the cached scan listing.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wifiportal",
			Name:      "provisioning_state",
			Help:      "Current provisioning state, 0 is awaiting credentials.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Submissions, m.Connections, m.Networks, m.State)
	}
	return m
}
