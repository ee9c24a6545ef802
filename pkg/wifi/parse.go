// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wifi

import (
	"regexp"
	"strings"
)

var (
	// RegEx for parsing iwlist output
	cellRE       = regexp.MustCompile("(?m)^\\s*Cell")
	essidRE      = regexp.MustCompile("(?m)^\\s*ESSID:.*$")
	encKeyOptRE  = regexp.MustCompile("(?m)^\\s*Encryption key:(on|off)$")
	wpa2RE       = regexp.MustCompile("(?m)^\\s*IE: IEEE 802.11i/WPA2 Version 1$")
	authSuitesRE = regexp.MustCompile("(?m)^\\s*Authentication Suites .*$")
)

// afterColon returns the text after the first colon of line, so essids
// that contain colons survive.
func afterColon(line []byte) string {
	parts := strings.SplitN(string(line), ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

/*
 * Assumptions:
 *	1) Cell, essid, and encryption key option are 1:1 match
 *	2) We only support IEEE 802.11i/WPA2 Version 1
 *	3) Each Wifi only support (1) authentication suites (based on observations)
 *
 * Cells are returned in the order iwlist printed them, duplicates included.
 */
func parseIwlistOut(o []byte) []Option {
	cells := cellRE.FindAllIndex(o, -1)
	essids := essidRE.FindAll(o, -1)
	encKeyOpts := encKeyOptRE.FindAll(o, -1)

	if cells == nil {
		return nil
	}

	var res []Option
	for i := 0; i < len(cells); i++ {
		if i >= len(essids) || i >= len(encKeyOpts) {
			break
		}
		essid := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(afterColon(essids[i])), "\""), "\"")
		encKeyOpt := strings.TrimSpace(afterColon(encKeyOpts[i]))
		if encKeyOpt == "off" {
			res = append(res, Option{essid, NoEnc})
			continue
		}
		// Find the proper Authentication Suites
		start, end := cells[i][0], len(o)
		if i != len(cells)-1 {
			end = cells[i+1][0]
		}
		// Narrow down the scope when looking for WPA Tag
		wpa2SearchArea := o[start:end]
		l := wpa2RE.FindIndex(wpa2SearchArea)
		if l == nil {
			res = append(res, Option{essid, NotSupportedProto})
			continue
		}
		// Narrow down the scope when looking for Authorization Suites
		authSearchArea := wpa2SearchArea[l[0]:]
		authSuites := strings.TrimSpace(afterColon(authSuitesRE.Find(authSearchArea)))
		switch authSuites {
		case "PSK":
			res = append(res, Option{essid, WpaPsk})
		case "802.1x":
			res = append(res, Option{essid, WpaEap})
		default:
			res = append(res, Option{essid, NotSupportedProto})
		}
	}
	return res
}

// parseIwInfoType extracts the interface type from `iw dev <if> info`.
func parseIwInfoType(o []byte) Mode {
	for _, line := range strings.Split(string(o), "\n") {
		f := strings.Fields(line)
		if len(f) != 2 || f[0] != "type" {
			continue
		}
		switch f[1] {
		case "AP":
			return ModeAccessPoint
		case "managed":
			return ModeStation
		}
		return ModeOff
	}
	return ModeOff
}
