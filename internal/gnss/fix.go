// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"fmt"
	"strings"
)

// FixStatus is the fix level of the receiver. Levels are ordered by
// completeness and each one implies the guarantees of the lower ones.
type FixStatus uint32

const (
	FixStatusNo   FixStatus = iota // no position, velocity or time
	FixStatusTime                  // time only
	FixStatus2D                    // horizontal position; velocity and time available
	FixStatus3D                    // position including altitude; velocity and time available
)

var fixStatusNames = [...]string{"NO", "TIME", "2D", "3D"}

func (s FixStatus) Valid() bool { return s <= FixStatus3D }

func (s FixStatus) String() string {
	if s.Valid() {
		return fixStatusNames[s]
	}
	return fmt.Sprintf("FixStatus(%d)", uint32(s))
}

// Implies reports whether a fix at level s also provides what other provides.
func (s FixStatus) Implies(other FixStatus) bool {
	return s.Valid() && other.Valid() && s >= other
}

func (s FixStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("gnss: invalid fix status %d", uint32(s))
	}
	return []byte(s.String()), nil
}

func (s *FixStatus) UnmarshalText(b []byte) error {
	name := strings.ToUpper(string(b))
	for i, n := range fixStatusNames {
		if n == name {
			*s = FixStatus(i)
			return nil
		}
	}
	return fmt.Errorf("gnss: unknown fix status %q", string(b))
}

// FixType is a bitmask of the sources actually used for the fix. Bits are
// grouped in clusters with gaps reserved for future flags; flags from
// different clusters combine freely.
type FixType uint32

const (
	// signal characteristics
	FixTypeSingleFrequency    FixType = 0x00000001
	FixTypeMultiFrequency     FixType = 0x00000002
	FixTypeMultiConstellation FixType = 0x00000004
	// improvement techniques
	FixTypePPP              FixType = 0x00000010
	FixTypeIntegrityChecked FixType = 0x00000020
	// correction data
	FixTypeSBAS     FixType = 0x00001000
	FixTypeDGNSS    FixType = 0x00002000
	FixTypeRTKFixed FixType = 0x00004000
	FixTypeRTKFloat FixType = 0x00008000
	FixTypeSSR      FixType = 0x00010000
	// propagation
	FixTypeEstimated     FixType = 0x00100000
	FixTypeDeadReckoning FixType = 0x00200000
	// artificial fixes
	FixTypeManual        FixType = 0x10000000
	FixTypeSimulatorMode FixType = 0x20000000
)

// Cluster masks.
const (
	FixClusterSignal      FixType = 0x0000000F
	FixClusterImprovement FixType = 0x00000FF0
	FixClusterCorrection  FixType = 0x000FF000
	FixClusterPropagation FixType = 0x0FF00000
	FixClusterArtificial  FixType = 0xF0000000
)

var fixTypeTable = flagTable{
	{uint32(FixTypeSingleFrequency), "SINGLE_FREQUENCY"},
	{uint32(FixTypeMultiFrequency), "MULTI_FREQUENCY"},
	{uint32(FixTypeMultiConstellation), "MULTI_CONSTELLATION"},
	{uint32(FixTypePPP), "PPP"},
	{uint32(FixTypeIntegrityChecked), "INTEGRITY_CHECKED"},
	{uint32(FixTypeSBAS), "SBAS"},
	{uint32(FixTypeDGNSS), "DGNSS"},
	{uint32(FixTypeRTKFixed), "RTK_FIXED"},
	{uint32(FixTypeRTKFloat), "RTK_FLOAT"},
	{uint32(FixTypeSSR), "SSR"},
	{uint32(FixTypeEstimated), "ESTIMATED"},
	{uint32(FixTypeDeadReckoning), "DEAD_RECKONING"},
	{uint32(FixTypeManual), "MANUAL"},
	{uint32(FixTypeSimulatorMode), "SIMULATOR_MODE"},
}

// FixTypeFlags lists every defined FixType flag in bit order.
func FixTypeFlags() []FixType {
	var out []FixType
	for _, b := range fixTypeTable.bits() {
		out = append(out, FixType(b))
	}
	return out
}

func (f FixType) Has(flag FixType) bool        { return flag != 0 && f&flag == flag }
func (f FixType) With(flag FixType) FixType    { return f | flag }
func (f FixType) Without(flag FixType) FixType { return f &^ flag }

// Cluster returns the flags of f within the given cluster mask.
func (f FixType) Cluster(cluster FixType) FixType { return f & cluster }

// Flags returns the defined flags set in f.
func (f FixType) Flags() []FixType {
	var out []FixType
	for _, b := range fixTypeTable.bits() {
		if uint32(f)&b != 0 {
			out = append(out, FixType(b))
		}
	}
	return out
}

// Unknown returns the bits of f that have no name yet. They are kept so a
// consumer built against an older table forwards newer flags untouched.
func (f FixType) Unknown() FixType { return f &^ FixType(fixTypeTable.known()) }

func (f FixType) String() string { return fixTypeTable.format(uint32(f)) }

// ParseFixType reads a list such as "MULTI_CONSTELLATION|RTK_FIXED".
func ParseFixType(s string) (FixType, error) {
	m, err := fixTypeTable.parse(s)
	if err != nil {
		return 0, fmt.Errorf("gnss: fix type: %w", err)
	}
	return FixType(m), nil
}

// SatelliteFlag is a bitmask of per-satellite tracking status.
type SatelliteFlag uint32

const (
	SatelliteUsed               SatelliteFlag = 0x00000001
	SatelliteEphemerisAvailable SatelliteFlag = 0x00000002
)

var satelliteFlagTable = flagTable{
	{uint32(SatelliteUsed), "USED"},
	{uint32(SatelliteEphemerisAvailable), "EPHEMERIS_AVAILABLE"},
}

// SatelliteFlags lists every defined SatelliteFlag in bit order.
func SatelliteFlags() []SatelliteFlag {
	return []SatelliteFlag{SatelliteUsed, SatelliteEphemerisAvailable}
}

func (f SatelliteFlag) Has(flag SatelliteFlag) bool { return flag != 0 && f&flag == flag }

func (f SatelliteFlag) String() string { return satelliteFlagTable.format(uint32(f)) }
