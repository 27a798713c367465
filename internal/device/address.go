// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"fmt"
	"strings"
)

// Address is a logical device address of the form Device@host.
type Address struct {
	Device string
	Host   string
}

// ParseAddress splits "DTrack@localhost". A missing host means localhost.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	device, host, found := strings.Cut(s, "@")
	if !found {
		host = "localhost"
	}
	if device == "" {
		return Address{}, fmt.Errorf("device address %q has no device name", s)
	}
	if host == "" {
		return Address{}, fmt.Errorf("device address %q has an empty host", s)
	}
	return Address{Device: device, Host: host}, nil
}

func (a Address) String() string {
	return a.Device + "@" + a.Host
}
