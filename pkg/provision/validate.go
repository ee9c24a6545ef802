// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provision

import (
	"errors"
	"fmt"
)

// Credential bounds. Lengths are in bytes: 802.11 SSIDs are octet
// strings and WPA passphrases are 8..63 ASCII characters.
const (
	MinNameLen       = 1
	MaxNameLen       = 32
	MinPassphraseLen = 8
	MaxPassphraseLen = 63
)

var (
	ErrNameLength       = errors.New("network name must be 1..32 characters")
	ErrPassphraseLength = errors.New("passphrase must be 8..63 characters")
)

// CheckCredential returns which bound, if any, name and passphrase break.
func CheckCredential(name, passphrase string) error {
	if len(name) < MinNameLen || len(name) > MaxNameLen {
		return fmt.Errorf("%w, got %d", ErrNameLength, len(name))
	}
	if len(passphrase) < MinPassphraseLen || len(passphrase) > MaxPassphraseLen {
		return fmt.Errorf("%w, got %d", ErrPassphraseLength, len(passphrase))
	}
	return nil
}

// ValidCredential is the only gate in front of a connection attempt.
func ValidCredential(name, passphrase string) bool {
	return CheckCredential(name, passphrase) == nil
}
