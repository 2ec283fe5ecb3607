// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import "errors"

// ErrUnknownValidity is returned when a raw record sets validity bits that
// do not name any field of the record.
var ErrUnknownValidity = errors.New("gnss: undefined validity bits")

// TimeValidity is the validityBits mask of the raw Time layout. Date and
// clock have separate bits since a receiver may know the time before the
// date.
type TimeValidity uint32

const (
	TimeClockValid   TimeValidity = 0x00000001 // hour, minute, second, ms
	TimeDateValid    TimeValidity = 0x00000002 // year, month, day
	TimeScaleValid   TimeValidity = 0x00000004
	TimeLeapSecValid TimeValidity = 0x00000008
)

var timeValidityTable = flagTable{
	{uint32(TimeClockValid), "TIME"},
	{uint32(TimeDateValid), "DATE"},
	{uint32(TimeScaleValid), "SCALE"},
	{uint32(TimeLeapSecValid), "LEAPSEC"},
}

func (v TimeValidity) Has(bit TimeValidity) bool { return bit != 0 && v&bit == bit }
func (v TimeValidity) String() string            { return timeValidityTable.format(uint32(v)) }

// SatelliteValidity is the validityBits mask of the raw SatelliteDetail layout.
type SatelliteValidity uint32

const (
	SatelliteSystemValid             SatelliteValidity = 0x00000001
	SatelliteIDValid                 SatelliteValidity = 0x00000002
	SatelliteAzimuthValid            SatelliteValidity = 0x00000004
	SatelliteElevationValid          SatelliteValidity = 0x00000008
	SatelliteCNoValid                SatelliteValidity = 0x00000010
	SatelliteUsedValid               SatelliteValidity = 0x00000020 // statusBits USED
	SatelliteEphemerisAvailableValid SatelliteValidity = 0x00000040 // statusBits EPHEMERIS_AVAILABLE
	SatelliteResidualValid           SatelliteValidity = 0x00000080
)

var satelliteValidityTable = flagTable{
	{uint32(SatelliteSystemValid), "SYSTEM"},
	{uint32(SatelliteIDValid), "ID"},
	{uint32(SatelliteAzimuthValid), "AZIMUTH"},
	{uint32(SatelliteElevationValid), "ELEVATION"},
	{uint32(SatelliteCNoValid), "CNO"},
	{uint32(SatelliteUsedValid), "USED"},
	{uint32(SatelliteEphemerisAvailableValid), "EPHEMERIS_AVAILABLE"},
	{uint32(SatelliteResidualValid), "RESIDUAL"},
}

func (v SatelliteValidity) Has(bit SatelliteValidity) bool { return bit != 0 && v&bit == bit }
func (v SatelliteValidity) String() string                 { return satelliteValidityTable.format(uint32(v)) }

// PositionValidity is the validityBits mask of the raw Position layout.
type PositionValidity uint32

const (
	// position
	PositionLatitudeValid    PositionValidity = 0x00000001
	PositionLongitudeValid   PositionValidity = 0x00000002
	PositionAltitudeMSLValid PositionValidity = 0x00000004
	PositionAltitudeEllValid PositionValidity = 0x00000008
	// velocity
	PositionHSpeedValid  PositionValidity = 0x00000010
	PositionVSpeedValid  PositionValidity = 0x00000020
	PositionHeadingValid PositionValidity = 0x00000040
	// satellite constellation
	PositionPDOPValid PositionValidity = 0x00000080
	PositionHDOPValid PositionValidity = 0x00000100
	PositionVDOPValid PositionValidity = 0x00000200
	PositionUSatValid PositionValidity = 0x00000400
	PositionTSatValid PositionValidity = 0x00000800
	PositionVSatValid PositionValidity = 0x00001000
	// error estimates
	PositionSigmaHPositionValid PositionValidity = 0x00002000
	PositionSigmaAltitudeValid  PositionValidity = 0x00004000
	PositionSigmaHSpeedValid    PositionValidity = 0x00008000
	PositionSigmaVSpeedValid    PositionValidity = 0x00010000
	PositionSigmaHeadingValid   PositionValidity = 0x00020000
	// fix status
	PositionStatusValid  PositionValidity = 0x00040000
	PositionFixTypeValid PositionValidity = 0x00080000
	// systems
	PositionActivatedSystemsValid PositionValidity = 0x00100000
	PositionUsedSystemsValid      PositionValidity = 0x00200000
	// corrections
	PositionCorrectionAgeValid PositionValidity = 0x00400000
)

var positionValidityTable = flagTable{
	{uint32(PositionLatitudeValid), "LATITUDE"},
	{uint32(PositionLongitudeValid), "LONGITUDE"},
	{uint32(PositionAltitudeMSLValid), "ALTITUDEMSL"},
	{uint32(PositionAltitudeEllValid), "ALTITUDEELL"},
	{uint32(PositionHSpeedValid), "HSPEED"},
	{uint32(PositionVSpeedValid), "VSPEED"},
	{uint32(PositionHeadingValid), "HEADING"},
	{uint32(PositionPDOPValid), "PDOP"},
	{uint32(PositionHDOPValid), "HDOP"},
	{uint32(PositionVDOPValid), "VDOP"},
	{uint32(PositionUSatValid), "USAT"},
	{uint32(PositionTSatValid), "TSAT"},
	{uint32(PositionVSatValid), "VSAT"},
	{uint32(PositionSigmaHPositionValid), "SHPOS"},
	{uint32(PositionSigmaAltitudeValid), "SALT"},
	{uint32(PositionSigmaHSpeedValid), "SHSPEED"},
	{uint32(PositionSigmaVSpeedValid), "SVSPEED"},
	{uint32(PositionSigmaHeadingValid), "SHEADING"},
	{uint32(PositionStatusValid), "STAT"},
	{uint32(PositionFixTypeValid), "TYPE"},
	{uint32(PositionActivatedSystemsValid), "ASYS"},
	{uint32(PositionUsedSystemsValid), "USYS"},
	{uint32(PositionCorrectionAgeValid), "CORRAGE"},
}

func (v PositionValidity) Has(bit PositionValidity) bool { return bit != 0 && v&bit == bit }
func (v PositionValidity) String() string                { return positionValidityTable.format(uint32(v)) }

// validity bit lists, exported for table-driven checks
func TimeValidityBits() []TimeValidity {
	var out []TimeValidity
	for _, b := range timeValidityTable.bits() {
		out = append(out, TimeValidity(b))
	}
	return out
}

func SatelliteValidityBits() []SatelliteValidity {
	var out []SatelliteValidity
	for _, b := range satelliteValidityTable.bits() {
		out = append(out, SatelliteValidity(b))
	}
	return out
}

func PositionValidityBits() []PositionValidity {
	var out []PositionValidity
	for _, b := range positionValidityTable.bits() {
		out = append(out, PositionValidity(b))
	}
	return out
}
