// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wifi

import (
	"net"
	"sync"
)

var _ = Radio(&StubWorker{})

// StubWorker is an in-memory Radio for tests. Mode changes become
// visible after ModeLag calls to Mode; a connection reports
// StatusConnected after ConnectAfter calls to Status, or never when
// ConnectAfter is negative.
type StubWorker struct {
	Options []Option
	ID      string
	IP      net.IP

	ModeLag      int
	ConnectAfter int
	ScanErr      error
	SetModeErr   error

	mu          sync.Mutex
	mode        Mode
	pending     Mode
	lag         int
	status      Status
	statusPolls int
	connected   []string
	modes       []Mode
}

func NewStubWorker(id string, options ...Option) *StubWorker {
	return &StubWorker{ID: id, Options: options, IP: net.IPv4(192, 168, 1, 23)}
}

func (w *StubWorker) Scan() ([]Option, error) {
	if w.ScanErr != nil {
		return nil, w.ScanErr
	}
	return append([]Option(nil), w.Options...), nil
}

func (w *StubWorker) Mode() (Mode, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != w.mode {
		if w.lag <= 0 {
			w.mode = w.pending
		} else {
			w.lag--
		}
	}
	return w.mode, nil
}

func (w *StubWorker) SetMode(m Mode) error {
	if w.SetModeErr != nil {
		return w.SetModeErr
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending, w.lag = m, w.ModeLag
	w.modes = append(w.modes, m)
	return nil
}

func (w *StubWorker) Connect(essid, pass string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = append(w.connected, essid)
	w.status, w.statusPolls = StatusConnecting, 0
	return nil
}

func (w *StubWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusConnecting && w.ConnectAfter >= 0 {
		if w.statusPolls >= w.ConnectAfter {
			w.status = StatusConnected
		}
		w.statusPolls++
	}
	return w.status
}

func (w *StubWorker) GetID() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusConnected && len(w.connected) > 0 {
		return w.connected[len(w.connected)-1], nil
	}
	return w.ID, nil
}

func (w *StubWorker) LocalIP() (net.IP, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != StatusConnected {
		return nil, ErrNotConnected
	}
	return w.IP, nil
}

// Connected returns the essids passed to Connect, in call order.
func (w *StubWorker) Connected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.connected...)
}

// Modes returns the modes passed to SetMode, in call order.
func (w *StubWorker) Modes() []Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Mode(nil), w.modes...)
}
