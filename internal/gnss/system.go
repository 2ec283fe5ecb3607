// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"fmt"
	"strings"
)

// System identifies GNSS constellations, their additional signals and
// augmentation systems. Values are single bits so they combine into masks
// (activated or used systems of a fix).
type System uint32

const (
	SystemGPS       System = 0x00000001 // L1
	SystemGLONASS   System = 0x00000002 // L1
	SystemGalileo   System = 0x00000004 // E1
	SystemBeiDou    System = 0x00000008 // B1
	SystemGPSL2     System = 0x00000010
	SystemGPSL5     System = 0x00000020
	SystemGLONASSL2 System = 0x00000040
	SystemBeiDouB2  System = 0x00000080

	// Values >= SystemSBASBase identify satellite based augmentation systems.
	SystemSBASWAAS     System = 0x00010000 // North America
	SystemSBASEGNOS    System = 0x00020000 // Europe
	SystemSBASMSAS     System = 0x00040000 // Japan
	SystemSBASQZSSSAIF System = 0x00080000 // Japan
	SystemSBASSDCM     System = 0x00100000 // Russia
	SystemSBASGAGAN    System = 0x00200000 // India
)

const SystemSBASBase System = 0x00010000

var systemTable = flagTable{
	{uint32(SystemGPS), "GPS"},
	{uint32(SystemGLONASS), "GLONASS"},
	{uint32(SystemGalileo), "GALILEO"},
	{uint32(SystemBeiDou), "BEIDOU"},
	{uint32(SystemGPSL2), "GPS_L2"},
	{uint32(SystemGPSL5), "GPS_L5"},
	{uint32(SystemGLONASSL2), "GLONASS_L2"},
	{uint32(SystemBeiDouB2), "BEIDOU_B2"},
	{uint32(SystemSBASWAAS), "SBAS_WAAS"},
	{uint32(SystemSBASEGNOS), "SBAS_EGNOS"},
	{uint32(SystemSBASMSAS), "SBAS_MSAS"},
	{uint32(SystemSBASQZSSSAIF), "SBAS_QZSS_SAIF"},
	{uint32(SystemSBASSDCM), "SBAS_SDCM"},
	{uint32(SystemSBASGAGAN), "SBAS_GAGAN"},
}

// Systems lists every defined System value in bit order.
func Systems() []System {
	var out []System
	for _, b := range systemTable.bits() {
		out = append(out, System(b))
	}
	return out
}

func (s System) Has(sys System) bool { return sys != 0 && s&sys == sys }

// IsSBAS reports whether s is a single augmentation system.
func (s System) IsSBAS() bool { return s.Single() && s >= SystemSBASBase }

// Constellations drops augmentation systems and additional signals.
func (s System) Constellations() System {
	return s & (SystemGPS | SystemGLONASS | SystemGalileo | SystemBeiDou)
}

// MultiConstellation reports whether s spans more than one constellation.
func (s System) MultiConstellation() bool {
	c := s.Constellations()
	return c&(c-1) != 0
}

// Single reports whether exactly one bit is set.
func (s System) Single() bool { return s != 0 && s&(s-1) == 0 }

// Subset reports whether every system in s is also in of.
func (s System) Subset(of System) bool { return s&^of == 0 }

func (s System) Flags() []System {
	var out []System
	for _, b := range systemTable.bits() {
		if uint32(s)&b != 0 {
			out = append(out, System(b))
		}
	}
	return out
}

func (s System) Unknown() System { return s &^ System(systemTable.known()) }

func (s System) String() string { return systemTable.format(uint32(s)) }

// ParseSystems reads a list such as "GPS,GALILEO" or "GPS|SBAS_EGNOS".
func ParseSystems(list string) (System, error) {
	m, err := systemTable.parse(list)
	if err != nil {
		return 0, fmt.Errorf("gnss: systems: %w", err)
	}
	return System(m), nil
}

// TimeScale is the time scale of a Time sample.
type TimeScale uint32

const (
	TimeScaleUTC TimeScale = 0 // preferred, with leap seconds
	TimeScaleGPS TimeScale = 1 // fallback, no leap seconds since 1980-01-06
)

func (t TimeScale) Valid() bool { return t <= TimeScaleGPS }

func (t TimeScale) String() string {
	switch t {
	case TimeScaleUTC:
		return "UTC"
	case TimeScaleGPS:
		return "GPS"
	}
	return fmt.Sprintf("TimeScale(%d)", uint32(t))
}

func (t TimeScale) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("gnss: invalid time scale %d", uint32(t))
	}
	return []byte(t.String()), nil
}

func (t *TimeScale) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "UTC":
		*t = TimeScaleUTC
	case "GPS":
		*t = TimeScaleGPS
	default:
		return fmt.Errorf("gnss: unknown time scale %q", string(b))
	}
	return nil
}
