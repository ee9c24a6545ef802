// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scan turns a raw radio scan into the listing of selectable
// networks served to portal clients.
package scan

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/u-root/wifiportal/pkg/wifi"
)

// MaxEssidLen is the longest SSID 802.11 allows, in octets.
const MaxEssidLen = 32

// Listing is an ordered list of unique, selectable network names.
// A Listing is not modified after it is built.
type Listing []string

// Networks scans with r and returns the names a client may pick: empty
// names, names longer than MaxEssidLen and excluded (the device's own
// access point) are dropped, and only the first sighting of each name is
// kept. Order follows the scan. Networks blocks for the whole scan.
func Networks(r wifi.Scanner, excluded string) (Listing, error) {
	opts, err := r.Scan()
	if err != nil {
		return Listing{}, fmt.Errorf("scan: %w", err)
	}
	return Filter(opts, excluded), nil
}

// Filter applies the Networks rules to an existing scan result.
func Filter(opts []wifi.Option, excluded string) Listing {
	l := Listing{}
	seen := make(map[string]bool)
	for _, o := range opts {
		name := o.Essid
		if name == "" || name == excluded || len(name) > MaxEssidLen {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		l = append(l, name)
	}
	return l
}

// MarshalJSON renders the listing as a JSON array of strings. Quotes,
// backslashes and control characters in names are escaped; HTML
// characters are left alone. A nil listing renders as [].
func (l Listing) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string(l.orEmpty())); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

func (l Listing) orEmpty() Listing {
	if l == nil {
		return Listing{}
	}
	return l
}

// JSON is MarshalJSON for callers that cannot handle an error; encoding a
// slice of strings cannot fail.
func (l Listing) JSON() []byte {
	b, err := l.MarshalJSON()
	if err != nil {
		return []byte("[]")
	}
	return b
}
