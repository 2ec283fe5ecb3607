// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"errors"
	"fmt"
	"math"
)

// Position is one GNSS position, velocity and accuracy fix. It carries
// everything a GNSS/dead-reckoning fusion needs from the receiver.
type Position struct {
	Timestamp uint64 `json:"timestamp"` // ms

	Latitude    Opt[float64] `json:"latitude,omitzero"`     // WGS84 degrees
	Longitude   Opt[float64] `json:"longitude,omitzero"`    // WGS84 degrees
	AltitudeMSL Opt[float32] `json:"altitude_msl,omitzero"` // m above mean sea level
	AltitudeEll Opt[float32] `json:"altitude_ell,omitzero"` // m above WGS84 ellipsoid

	HSpeed  Opt[float32] `json:"h_speed,omitzero"` // m/s along Heading
	VSpeed  Opt[float32] `json:"v_speed,omitzero"` // m/s, positive upwards
	Heading Opt[float32] `json:"heading,omitzero"` // course degrees, 0 north, 90 east

	// pdop^2 = hdop^2 + vdop^2; the three are stored as reported.
	PDOP              Opt[float32] `json:"pdop,omitzero"`
	HDOP              Opt[float32] `json:"hdop,omitzero"`
	VDOP              Opt[float32] `json:"vdop,omitzero"`
	UsedSatellites    Opt[uint16]  `json:"used_satellites,omitzero"`
	TrackedSatellites Opt[uint16]  `json:"tracked_satellites,omitzero"`
	VisibleSatellites Opt[uint16]  `json:"visible_satellites,omitzero"`

	SigmaHPosition Opt[float32] `json:"sigma_h_position,omitzero"` // m
	SigmaAltitude  Opt[float32] `json:"sigma_altitude,omitzero"`   // m
	SigmaHSpeed    Opt[float32] `json:"sigma_h_speed,omitzero"`    // m/s
	SigmaVSpeed    Opt[float32] `json:"sigma_v_speed,omitzero"`    // m/s
	SigmaHeading   Opt[float32] `json:"sigma_heading,omitzero"`    // degrees

	FixStatus Opt[FixStatus] `json:"fix_status,omitzero"`
	FixType   Opt[FixType]   `json:"fix_type,omitzero"`

	ActivatedSystems Opt[System] `json:"activated_systems,omitzero"`
	UsedSystems      Opt[System] `json:"used_systems,omitzero"`

	// Age of the correction data in s; its kind is given by FixType.
	CorrectionAge Opt[uint16] `json:"correction_age,omitzero"`
}

// Validate checks the documented ranges of every valid field.
func (p Position) Validate() error {
	var errs []error
	if v, ok := p.Latitude.Get(); ok && (math.IsNaN(v) || v < -90 || v > 90) {
		errs = append(errs, rangeErr("latitude", v))
	}
	if v, ok := p.Longitude.Get(); ok && (math.IsNaN(v) || v < -180 || v > 180) {
		errs = append(errs, rangeErr("longitude", v))
	}
	for _, f := range []struct {
		name string
		v    Opt[float32]
	}{
		{"altitude_msl", p.AltitudeMSL},
		{"altitude_ell", p.AltitudeEll},
		{"v_speed", p.VSpeed},
	} {
		if v, ok := f.v.Get(); ok && !finite32(v) {
			errs = append(errs, rangeErr(f.name, v))
		}
	}
	for _, f := range []struct {
		name string
		v    Opt[float32]
	}{
		{"h_speed", p.HSpeed},
		{"pdop", p.PDOP},
		{"hdop", p.HDOP},
		{"vdop", p.VDOP},
		{"sigma_h_position", p.SigmaHPosition},
		{"sigma_altitude", p.SigmaAltitude},
		{"sigma_h_speed", p.SigmaHSpeed},
		{"sigma_v_speed", p.SigmaVSpeed},
		{"sigma_heading", p.SigmaHeading},
	} {
		if v, ok := f.v.Get(); ok && (!finite32(v) || v < 0) {
			errs = append(errs, rangeErr(f.name, v))
		}
	}
	if v, ok := p.Heading.Get(); ok && (!finite32(v) || v < 0 || v >= 360) {
		errs = append(errs, rangeErr("heading", v))
	}
	if v, ok := p.FixStatus.Get(); ok && !v.Valid() {
		errs = append(errs, rangeErr("fix_status", uint32(v)))
	}
	return errors.Join(errs...)
}

// NormalizeHeading wraps deg into the heading range [0, 360).
func NormalizeHeading(deg float64) float32 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	// rounding to float32 can land exactly on 360; -0 reads as 0
	if f := float32(h); f > 0 && f < 360 {
		return f
	}
	return 0
}

// dopTolerance is the allowed relative deviation of pdop from
// sqrt(hdop^2 + vdop^2); receivers round each value independently.
const dopTolerance = 0.05

// CheckConsistency reports cross-field expectations that the data contract
// documents but does not enforce. A record that fails here is still valid.
func (p Position) CheckConsistency() error {
	var errs []error
	used, okUsed := p.UsedSystems.Get()
	act, okAct := p.ActivatedSystems.Get()
	if okUsed && okAct && !used.Subset(act) {
		errs = append(errs, fmt.Errorf("used systems %s not within activated %s", used, act))
	}
	pdop, ok1 := p.PDOP.Get()
	hdop, ok2 := p.HDOP.Get()
	vdop, ok3 := p.VDOP.Get()
	if ok1 && ok2 && ok3 {
		want := math.Hypot(float64(hdop), float64(vdop))
		if math.Abs(float64(pdop)-want) > dopTolerance*math.Max(want, 1) {
			errs = append(errs, fmt.Errorf("pdop %.2f differs from hypot(hdop, vdop) %.2f", pdop, want))
		}
	}
	u, okU := p.UsedSatellites.Get()
	t, okT := p.TrackedSatellites.Get()
	v, okV := p.VisibleSatellites.Get()
	if okU && okT && u > t {
		errs = append(errs, fmt.Errorf("used satellites %d exceed tracked %d", u, t))
	}
	if okT && okV && t > v {
		errs = append(errs, fmt.Errorf("tracked satellites %d exceed visible %d", t, v))
	}
	if st, ok := p.FixStatus.Get(); ok && st == FixStatus3D && !p.AltitudeMSL.Valid() && !p.AltitudeEll.Valid() {
		errs = append(errs, errors.New("3D fix without altitude"))
	}
	return errors.Join(errs...)
}

func (p Position) Validity() PositionValidity {
	var v PositionValidity
	set := func(ok bool, bit PositionValidity) {
		if ok {
			v |= bit
		}
	}
	set(p.Latitude.Valid(), PositionLatitudeValid)
	set(p.Longitude.Valid(), PositionLongitudeValid)
	set(p.AltitudeMSL.Valid(), PositionAltitudeMSLValid)
	set(p.AltitudeEll.Valid(), PositionAltitudeEllValid)
	set(p.HSpeed.Valid(), PositionHSpeedValid)
	set(p.VSpeed.Valid(), PositionVSpeedValid)
	set(p.Heading.Valid(), PositionHeadingValid)
	set(p.PDOP.Valid(), PositionPDOPValid)
	set(p.HDOP.Valid(), PositionHDOPValid)
	set(p.VDOP.Valid(), PositionVDOPValid)
	set(p.UsedSatellites.Valid(), PositionUSatValid)
	set(p.TrackedSatellites.Valid(), PositionTSatValid)
	set(p.VisibleSatellites.Valid(), PositionVSatValid)
	set(p.SigmaHPosition.Valid(), PositionSigmaHPositionValid)
	set(p.SigmaAltitude.Valid(), PositionSigmaAltitudeValid)
	set(p.SigmaHSpeed.Valid(), PositionSigmaHSpeedValid)
	set(p.SigmaVSpeed.Valid(), PositionSigmaVSpeedValid)
	set(p.SigmaHeading.Valid(), PositionSigmaHeadingValid)
	set(p.FixStatus.Valid(), PositionStatusValid)
	set(p.FixType.Valid(), PositionFixTypeValid)
	set(p.ActivatedSystems.Valid(), PositionActivatedSystemsValid)
	set(p.UsedSystems.Valid(), PositionUsedSystemsValid)
	set(p.CorrectionAge.Valid(), PositionCorrectionAgeValid)
	return v
}

// HasHorizontal reports whether latitude and longitude are both valid.
func (p Position) HasHorizontal() bool {
	return p.Latitude.Valid() && p.Longitude.Valid()
}
