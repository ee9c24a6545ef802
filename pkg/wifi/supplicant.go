// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wifi

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	nopassphrase = `network={
	ssid=%s
	key_mgmt=NONE
}
`
	psk = `network={
	ssid=%s
	psk=%s
}
`
	eap = `network={
	ssid=%s
	key_mgmt=WPA-EAP
	identity="%s"
	password="%s"
}
`
)

// PSK derives the 256-bit WPA pre-shared key from a passphrase, as
// defined by IEEE 802.11i: PBKDF2-SHA1 over the essid, 4096 rounds.
func PSK(essid, pass string) []byte {
	return pbkdf2.Key([]byte(pass), []byte(essid), 4096, 32, sha1.New)
}

// quoteEssid renders essid for wpa_supplicant.conf. Names the parser
// cannot take inside quotes are written as hex.
func quoteEssid(essid string) string {
	for _, r := range essid {
		if r == '"' || r == '\\' || r < 0x20 || r > 0x7e {
			return hex.EncodeToString([]byte(essid))
		}
	}
	return `"` + essid + `"`
}

func generateConfig(a ...string) (conf []byte, err error) {
	// format of a: [essid, pass, id]
	switch {
	case len(a) == 3:
		if strings.ContainsAny(a[1]+a[2], "\"\n") {
			return nil, fmt.Errorf("essid %q: identity and password must not contain quotes or newlines", a[0])
		}
		conf = []byte(fmt.Sprintf(eap, quoteEssid(a[0]), a[2], a[1]))
	case len(a) == 2:
		if len(a[1]) < 8 || len(a[1]) > 63 {
			return nil, fmt.Errorf("essid %q: passphrase must be 8..63 characters, got %d", a[0], len(a[1]))
		}
		conf = []byte(fmt.Sprintf(psk, quoteEssid(a[0]), hex.EncodeToString(PSK(a[0], a[1]))))
	case len(a) == 1:
		conf = []byte(fmt.Sprintf(nopassphrase, quoteEssid(a[0])))
	default:
		return nil, fmt.Errorf("generateConfig needs 1, 2, or 3 args")
	}
	return
}
