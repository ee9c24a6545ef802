// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report persists the outcome of a provisioning run as CBOR so
// other tools on the device can tell whether, and where, it joined a
// network.
package report

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/u-root/wifiportal/pkg/provision"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("report: cbor decoder: %v", err))
	}
}

// Record is the stored form of a provision.Report.
type Record struct {
	State     string    `cbor:"1,keyasint"`
	SSID      string    `cbor:"2,keyasint"`
	Address   string    `cbor:"3,keyasint,omitempty"`
	ElapsedMS int64     `cbor:"4,keyasint"`
	Finished  time.Time `cbor:"5,keyasint"`
}

// FromReport converts r, finished at the given time.
func FromReport(r provision.Report, finished time.Time) Record {
	rec := Record{
		State:     r.State.String(),
		SSID:      r.SSID,
		ElapsedMS: r.Elapsed.Milliseconds(),
		Finished:  finished.UTC(),
	}
	if r.LocalIP != nil {
		rec.Address = r.LocalIP.String()
	}
	return rec
}

// Success reports whether the run connected.
func (r Record) Success() bool {
	return r.State == provision.Connected.String()
}

// IP parses Address; it is nil for failed runs.
func (r Record) IP() net.IP {
	return net.ParseIP(r.Address)
}

func Encode(r Record) ([]byte, error) {
	return encMode.Marshal(r)
}

func Decode(b []byte) (Record, error) {
	var r Record
	if err := decMode.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("report: %w", err)
	}
	return r, nil
}

// Write stores r at path, replacing any earlier report in one rename.
func Write(path string, r Record) error {
	b, err := Encode(r)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Read loads the report at path.
func Read(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("report: %w", err)
	}
	return Decode(b)
}
