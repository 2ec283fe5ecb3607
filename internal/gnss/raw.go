// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import "fmt"

// Raw forms mirror the wire layout of the records field by field: fixed
// widths, enums as 32-bit values and a trailing validity mask. Field order
// is part of the contract. Content of fields whose bit is unset is
// unspecified; Raw() writes zero there.

type RawTime struct {
	Timestamp    uint64
	Year         uint16
	Month        uint8
	Day          uint8
	Hour         uint8
	Minute       uint8
	Second       uint8
	Ms           uint16
	Scale        TimeScale
	LeapSeconds  int8
	ValidityBits TimeValidity
}

type RawSatelliteDetail struct {
	Timestamp    uint64
	System       System
	SatelliteID  uint16
	Azimuth      uint16
	Elevation    uint16
	CNo          uint16
	StatusBits   SatelliteFlag
	PosResidual  int16
	ValidityBits SatelliteValidity
}

type RawPosition struct {
	Timestamp         uint64
	Latitude          float64
	Longitude         float64
	AltitudeMSL       float32
	AltitudeEll       float32
	HSpeed            float32
	VSpeed            float32
	Heading           float32
	PDOP              float32
	HDOP              float32
	VDOP              float32
	UsedSatellites    uint16
	TrackedSatellites uint16
	VisibleSatellites uint16
	SigmaHPosition    float32
	SigmaAltitude     float32
	SigmaHSpeed       float32
	SigmaVSpeed       float32
	SigmaHeading      float32
	FixStatus         FixStatus
	FixTypeBits       FixType
	ActivatedSystems  System
	UsedSystems       System
	CorrectionAge     uint16
	ValidityBits      PositionValidity
}

func (t Time) Raw() RawTime {
	d, _ := t.Date.Get()
	c, _ := t.Clock.Get()
	return RawTime{
		Timestamp:    t.Timestamp,
		Year:         d.Year,
		Month:        d.Month,
		Day:          d.Day,
		Hour:         c.Hour,
		Minute:       c.Minute,
		Second:       c.Second,
		Ms:           c.Millisecond,
		Scale:        t.Scale.Or(TimeScaleUTC),
		LeapSeconds:  t.LeapSeconds.Or(0),
		ValidityBits: t.Validity(),
	}
}

// TimeFromRaw exposes the fields whose validity bit is set and checks them.
func TimeFromRaw(r RawTime) (Time, error) {
	if rest := uint32(r.ValidityBits) &^ timeValidityTable.known(); rest != 0 {
		return Time{}, fmt.Errorf("time validity 0x%08X: %w", rest, ErrUnknownValidity)
	}
	v := r.ValidityBits
	t := Time{
		Timestamp:   r.Timestamp,
		Date:        when(v.Has(TimeDateValid), Date{Year: r.Year, Month: r.Month, Day: r.Day}),
		Clock:       when(v.Has(TimeClockValid), Clock{Hour: r.Hour, Minute: r.Minute, Second: r.Second, Millisecond: r.Ms}),
		Scale:       when(v.Has(TimeScaleValid), r.Scale),
		LeapSeconds: when(v.Has(TimeLeapSecValid), r.LeapSeconds),
	}
	if err := t.Validate(); err != nil {
		return Time{}, fmt.Errorf("time: %w", err)
	}
	return t, nil
}

func (s SatelliteDetail) Raw() RawSatelliteDetail {
	return RawSatelliteDetail{
		Timestamp:    s.Timestamp,
		System:       s.System.Or(0),
		SatelliteID:  s.ID.Or(0),
		Azimuth:      s.Azimuth.Or(0),
		Elevation:    s.Elevation.Or(0),
		CNo:          s.CNo.Or(0),
		StatusBits:   s.Status(),
		PosResidual:  s.PosResidual.Or(0),
		ValidityBits: s.Validity(),
	}
}

func SatelliteDetailFromRaw(r RawSatelliteDetail) (SatelliteDetail, error) {
	if rest := uint32(r.ValidityBits) &^ satelliteValidityTable.known(); rest != 0 {
		return SatelliteDetail{}, fmt.Errorf("satellite validity 0x%08X: %w", rest, ErrUnknownValidity)
	}
	v := r.ValidityBits
	s := SatelliteDetail{
		Timestamp:          r.Timestamp,
		System:             when(v.Has(SatelliteSystemValid), r.System),
		ID:                 when(v.Has(SatelliteIDValid), r.SatelliteID),
		Azimuth:            when(v.Has(SatelliteAzimuthValid), r.Azimuth),
		Elevation:          when(v.Has(SatelliteElevationValid), r.Elevation),
		CNo:                when(v.Has(SatelliteCNoValid), r.CNo),
		Used:               when(v.Has(SatelliteUsedValid), r.StatusBits.Has(SatelliteUsed)),
		EphemerisAvailable: when(v.Has(SatelliteEphemerisAvailableValid), r.StatusBits.Has(SatelliteEphemerisAvailable)),
		PosResidual:        when(v.Has(SatelliteResidualValid), r.PosResidual),
	}
	if err := s.Validate(); err != nil {
		return SatelliteDetail{}, fmt.Errorf("satellite: %w", err)
	}
	return s, nil
}

func (p Position) Raw() RawPosition {
	return RawPosition{
		Timestamp:         p.Timestamp,
		Latitude:          p.Latitude.Or(0),
		Longitude:         p.Longitude.Or(0),
		AltitudeMSL:       p.AltitudeMSL.Or(0),
		AltitudeEll:       p.AltitudeEll.Or(0),
		HSpeed:            p.HSpeed.Or(0),
		VSpeed:            p.VSpeed.Or(0),
		Heading:           p.Heading.Or(0),
		PDOP:              p.PDOP.Or(0),
		HDOP:              p.HDOP.Or(0),
		VDOP:              p.VDOP.Or(0),
		UsedSatellites:    p.UsedSatellites.Or(0),
		TrackedSatellites: p.TrackedSatellites.Or(0),
		VisibleSatellites: p.VisibleSatellites.Or(0),
		SigmaHPosition:    p.SigmaHPosition.Or(0),
		SigmaAltitude:     p.SigmaAltitude.Or(0),
		SigmaHSpeed:       p.SigmaHSpeed.Or(0),
		SigmaVSpeed:       p.SigmaVSpeed.Or(0),
		SigmaHeading:      p.SigmaHeading.Or(0),
		FixStatus:         p.FixStatus.Or(FixStatusNo),
		FixTypeBits:       p.FixType.Or(0),
		ActivatedSystems:  p.ActivatedSystems.Or(0),
		UsedSystems:       p.UsedSystems.Or(0),
		CorrectionAge:     p.CorrectionAge.Or(0),
		ValidityBits:      p.Validity(),
	}
}

func PositionFromRaw(r RawPosition) (Position, error) {
	if rest := uint32(r.ValidityBits) &^ positionValidityTable.known(); rest != 0 {
		return Position{}, fmt.Errorf("position validity 0x%08X: %w", rest, ErrUnknownValidity)
	}
	v := r.ValidityBits
	p := Position{
		Timestamp:         r.Timestamp,
		Latitude:          when(v.Has(PositionLatitudeValid), r.Latitude),
		Longitude:         when(v.Has(PositionLongitudeValid), r.Longitude),
		AltitudeMSL:       when(v.Has(PositionAltitudeMSLValid), r.AltitudeMSL),
		AltitudeEll:       when(v.Has(PositionAltitudeEllValid), r.AltitudeEll),
		HSpeed:            when(v.Has(PositionHSpeedValid), r.HSpeed),
		VSpeed:            when(v.Has(PositionVSpeedValid), r.VSpeed),
		Heading:           when(v.Has(PositionHeadingValid), r.Heading),
		PDOP:              when(v.Has(PositionPDOPValid), r.PDOP),
		HDOP:              when(v.Has(PositionHDOPValid), r.HDOP),
		VDOP:              when(v.Has(PositionVDOPValid), r.VDOP),
		UsedSatellites:    when(v.Has(PositionUSatValid), r.UsedSatellites),
		TrackedSatellites: when(v.Has(PositionTSatValid), r.TrackedSatellites),
		VisibleSatellites: when(v.Has(PositionVSatValid), r.VisibleSatellites),
		SigmaHPosition:    when(v.Has(PositionSigmaHPositionValid), r.SigmaHPosition),
		SigmaAltitude:     when(v.Has(PositionSigmaAltitudeValid), r.SigmaAltitude),
		SigmaHSpeed:       when(v.Has(PositionSigmaHSpeedValid), r.SigmaHSpeed),
		SigmaVSpeed:       when(v.Has(PositionSigmaVSpeedValid), r.SigmaVSpeed),
		SigmaHeading:      when(v.Has(PositionSigmaHeadingValid), r.SigmaHeading),
		FixStatus:         when(v.Has(PositionStatusValid), r.FixStatus),
		FixType:           when(v.Has(PositionFixTypeValid), r.FixTypeBits),
		ActivatedSystems:  when(v.Has(PositionActivatedSystemsValid), r.ActivatedSystems),
		UsedSystems:       when(v.Has(PositionUsedSystemsValid), r.UsedSystems),
		CorrectionAge:     when(v.Has(PositionCorrectionAgeValid), r.CorrectionAge),
	}
	if err := p.Validate(); err != nil {
		return Position{}, fmt.Errorf("position: %w", err)
	}
	return p, nil
}
