// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"errors"
	"fmt"
)

// SatelliteDetail is the telemetry of one visible or tracked satellite.
//
// ID ranges follow the receiver numbering: 1..32 GPS (PRN), 33..64 SBAS,
// 65..96 GLONASS, 1..64 Galileo. IDs are only unique within System.
type SatelliteDetail struct {
	Timestamp          uint64      `json:"timestamp"`
	System             Opt[System] `json:"system,omitzero"`
	ID                 Opt[uint16] `json:"id,omitzero"`
	Azimuth            Opt[uint16] `json:"azimuth,omitzero"`   // degrees 0..359
	Elevation          Opt[uint16] `json:"elevation,omitzero"` // degrees 0..90
	CNo                Opt[uint16] `json:"cno,omitzero"`       // dBHz 0..99, 0 when not tracking
	Used               Opt[bool]   `json:"used,omitzero"`
	EphemerisAvailable Opt[bool]   `json:"ephemeris_available,omitzero"`
	PosResidual        Opt[int16]  `json:"pos_residual,omitzero"` // m -999..999
}

// SatelliteKey identifies a satellite across systems.
type SatelliteKey struct {
	System System
	ID     uint16
}

func (k SatelliteKey) String() string {
	return fmt.Sprintf("%s/%d", k.System, k.ID)
}

// Key returns the (system, id) pair, valid only when both fields are.
func (s SatelliteDetail) Key() (SatelliteKey, bool) {
	sys, okSys := s.System.Get()
	id, okID := s.ID.Get()
	if !okSys || !okID {
		return SatelliteKey{}, false
	}
	return SatelliteKey{System: sys, ID: id}, true
}

// Tracking reports whether the satellite signal is currently received.
func (s SatelliteDetail) Tracking() bool {
	return s.CNo.Or(0) > 0
}

func (s SatelliteDetail) Validate() error {
	var errs []error
	if sys, ok := s.System.Get(); ok && !sys.Single() {
		errs = append(errs, fmt.Errorf("system %s: not a single system: %w", sys, ErrOutOfRange))
	}
	if v, ok := s.Azimuth.Get(); ok && v > 359 {
		errs = append(errs, rangeErr("azimuth", v))
	}
	if v, ok := s.Elevation.Get(); ok && v > 90 {
		errs = append(errs, rangeErr("elevation", v))
	}
	if v, ok := s.CNo.Get(); ok && v > 99 {
		errs = append(errs, rangeErr("cno", v))
	}
	if v, ok := s.PosResidual.Get(); ok && (v < -999 || v > 999) {
		errs = append(errs, rangeErr("pos_residual", v))
	}
	return errors.Join(errs...)
}

func (s SatelliteDetail) Validity() SatelliteValidity {
	var v SatelliteValidity
	if s.System.Valid() {
		v |= SatelliteSystemValid
	}
	if s.ID.Valid() {
		v |= SatelliteIDValid
	}
	if s.Azimuth.Valid() {
		v |= SatelliteAzimuthValid
	}
	if s.Elevation.Valid() {
		v |= SatelliteElevationValid
	}
	if s.CNo.Valid() {
		v |= SatelliteCNoValid
	}
	if s.Used.Valid() {
		v |= SatelliteUsedValid
	}
	if s.EphemerisAvailable.Valid() {
		v |= SatelliteEphemerisAvailableValid
	}
	if s.PosResidual.Valid() {
		v |= SatelliteResidualValid
	}
	return v
}

// Status returns the statusBits mask. Flags whose validity is not set are
// reported as cleared.
func (s SatelliteDetail) Status() SatelliteFlag {
	var f SatelliteFlag
	if s.Used.Or(false) {
		f |= SatelliteUsed
	}
	if s.EphemerisAvailable.Or(false) {
		f |= SatelliteEphemerisAvailable
	}
	return f
}
