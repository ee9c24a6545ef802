// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package wifi

import (
	"testing"
)

func TestNative(t *testing.T) {
	// Some things may fail as there may be no wlan or we might not
	// have the right privs. So just bail out of the test if some early
	// ops fail.
	w, err := NewNativeWorker("wlan0")
	if err != nil {
		t.Log(err)
		return
	}
	defer w.Close()
	m, err := w.Mode()
	if err != nil {
		t.Log(err)
		return
	}
	t.Logf("wlan0 is in %v mode", m)
}

func TestNativeNameTooLong(t *testing.T) {
	if _, err := NewNativeWorker("an-interface-name-far-too-long"); err == nil {
		t.Error("NewNativeWorker accepted a name longer than IFNAMSIZ")
	}
}
