// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"fmt"
	"strings"
)

// flagName binds one bit of a 32-bit mask to its wire name.
type flagName struct {
	bit  uint32
	name string
}

// flagTable is an append-only list of named bits in ascending bit order.
// Bit values are part of the wire contract and never renumbered.
type flagTable []flagName

func (t flagTable) known() uint32 {
	var m uint32
	for _, f := range t {
		m |= f.bit
	}
	return m
}

// format renders a mask as NAME|NAME, with remaining unnamed bits in hex.
func (t flagTable) format(mask uint32) string {
	if mask == 0 {
		return "NONE"
	}
	var parts []string
	for _, f := range t {
		if mask&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	if rest := mask &^ t.known(); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%08X", rest))
	}
	return strings.Join(parts, "|")
}

// parse accepts a list of names separated by '|' or ','.
func (t flagTable) parse(s string) (uint32, error) {
	var mask uint32
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" || tok == "NONE" {
			continue
		}
		found := false
		for _, f := range t {
			if f.name == tok {
				mask |= f.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag %q", tok)
		}
	}
	return mask, nil
}

func (t flagTable) bits() []uint32 {
	out := make([]uint32, len(t))
	for i, f := range t {
		out[i] = f.bit
	}
	return out
}
