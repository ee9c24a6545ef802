// Copyright 2019 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tlog adapts testing.TB to the ulog.Logger interface.
package tlog

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/u-root/u-root/pkg/ulog"
)

var _ ulog.Logger = Testing{}

// Testing implements ulog.Logger on top of testing.TB.
type Testing struct {
	Test testing.TB
}

// Print prints a input string
func (t Testing) Print(v ...interface{}) {
	t.Test.Helper()
	t.Test.Log(v...)
}

// Printf prints a formated string
func (t Testing) Printf(format string, v ...interface{}) {
	t.Test.Helper()
	t.Test.Logf(format, v...)
}

// Recorder logs through Test and keeps every line for later assertions.
// It is safe for concurrent use.
type Recorder struct {
	Test testing.TB

	mu    sync.Mutex
	lines []string
}

func (r *Recorder) add(s string) {
	r.mu.Lock()
	r.lines = append(r.lines, s)
	r.mu.Unlock()
	if r.Test != nil {
		r.Test.Log(s)
	}
}

func (r *Recorder) Print(v ...interface{}) {
	r.add(fmt.Sprint(v...))
}

func (r *Recorder) Printf(format string, v ...interface{}) {
	r.add(fmt.Sprintf(format, v...))
}

// Lines returns a copy of everything logged so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Contains reports whether any logged line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
