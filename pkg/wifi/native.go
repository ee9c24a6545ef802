// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package wifi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Wireless extensions ioctls, from linux/wireless.h.
const (
	siocsiwmode = 0x8B06
	siocgiwmode = 0x8B07

	iwModeAuto   = 0
	iwModeInfra  = 2
	iwModeMaster = 3
)

// iwreqMode is struct iwreq with the mode member of the union selected.
type iwreqMode struct {
	name [unix.IFNAMSIZ]byte
	mode uint32
	_    [12]byte
}

// NativeWorker reads and sets the radio mode with wireless extension
// ioctls on a datagram socket.
type NativeWorker struct {
	Interface string
	FD        int
}

func NewNativeWorker(i string) (*NativeWorker, error) {
	if len(i) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("interface name %q too long", i)
	}
	s, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_IP)
	if err != nil {
		return nil, err
	}
	return &NativeWorker{FD: s, Interface: i}, nil
}

func (w *NativeWorker) ioctl(req uintptr, r *iwreqMode) error {
	copy(r.name[:], w.Interface)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(w.FD), req, uintptr(unsafe.Pointer(r))); errno != 0 {
		return errno
	}
	return nil
}

func (w *NativeWorker) Mode() (Mode, error) {
	var r iwreqMode
	if err := w.ioctl(siocgiwmode, &r); err != nil {
		return ModeOff, fmt.Errorf("SIOCGIWMODE %s: %w", w.Interface, err)
	}
	switch r.mode {
	case iwModeInfra:
		return ModeStation, nil
	case iwModeMaster:
		return ModeAccessPoint, nil
	}
	return ModeOff, nil
}

func (w *NativeWorker) SetMode(m Mode) error {
	r := iwreqMode{mode: iwModeAuto}
	switch m {
	case ModeStation:
		r.mode = iwModeInfra
	case ModeAccessPoint:
		r.mode = iwModeMaster
	}
	if err := w.ioctl(siocsiwmode, &r); err != nil {
		return fmt.Errorf("SIOCSIWMODE %s %v: %w", w.Interface, m, err)
	}
	return nil
}

func (w *NativeWorker) Close() error {
	return unix.Close(w.FD)
}
