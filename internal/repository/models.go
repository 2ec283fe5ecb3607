// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// PositionRecord stores one position. A NULL column is a field that was
// not valid in the epoch; Validity repeats the mask for querying.
type PositionRecord struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;index:idx_session_time,priority:1;not null"`
	Timestamp int64     `gorm:"index:idx_session_time,priority:2;not null"` // ms
	Validity  int64     `gorm:"not null"`

	Latitude    *float64
	Longitude   *float64
	AltitudeMSL *float32
	AltitudeEll *float32
	HSpeed      *float32
	VSpeed      *float32
	Heading     *float32

	PDOP              *float32
	HDOP              *float32
	VDOP              *float32
	UsedSatellites    *int32
	TrackedSatellites *int32
	VisibleSatellites *int32

	SigmaHPosition *float32
	SigmaAltitude  *float32
	SigmaHSpeed    *float32
	SigmaVSpeed    *float32
	SigmaHeading   *float32

	FixStatus        *int64
	FixType          *int64
	ActivatedSystems *int64
	UsedSystems      *int64
	CorrectionAge    *int32

	CreatedAt time.Time
}

func (PositionRecord) TableName() string {
	return "gnss_positions"
}

type integer interface {
	~uint16 | ~uint32 | ~int32 | ~int64
}

func ptr[T any](o gnss.Opt[T]) *T {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

func opt[T any](p *T) gnss.Opt[T] {
	if p == nil {
		return gnss.Opt[T]{}
	}
	return gnss.Some(*p)
}

func ptrAs[U, T integer](o gnss.Opt[T]) *U {
	if v, ok := o.Get(); ok {
		u := U(v)
		return &u
	}
	return nil
}

func optAs[T, U integer](p *U) gnss.Opt[T] {
	if p == nil {
		return gnss.Opt[T]{}
	}
	return gnss.Some(T(*p))
}

// NewPositionRecord maps p into a row of session.
func NewPositionRecord(session uuid.UUID, p gnss.Position) PositionRecord {
	return PositionRecord{
		SessionID: session,
		Timestamp: int64(p.Timestamp),
		Validity:  int64(p.Validity()),

		Latitude:    ptr(p.Latitude),
		Longitude:   ptr(p.Longitude),
		AltitudeMSL: ptr(p.AltitudeMSL),
		AltitudeEll: ptr(p.AltitudeEll),
		HSpeed:      ptr(p.HSpeed),
		VSpeed:      ptr(p.VSpeed),
		Heading:     ptr(p.Heading),

		PDOP:              ptr(p.PDOP),
		HDOP:              ptr(p.HDOP),
		VDOP:              ptr(p.VDOP),
		UsedSatellites:    ptrAs[int32](p.UsedSatellites),
		TrackedSatellites: ptrAs[int32](p.TrackedSatellites),
		VisibleSatellites: ptrAs[int32](p.VisibleSatellites),

		SigmaHPosition: ptr(p.SigmaHPosition),
		SigmaAltitude:  ptr(p.SigmaAltitude),
		SigmaHSpeed:    ptr(p.SigmaHSpeed),
		SigmaVSpeed:    ptr(p.SigmaVSpeed),
		SigmaHeading:   ptr(p.SigmaHeading),

		FixStatus:        ptrAs[int64](p.FixStatus),
		FixType:          ptrAs[int64](p.FixType),
		ActivatedSystems: ptrAs[int64](p.ActivatedSystems),
		UsedSystems:      ptrAs[int64](p.UsedSystems),
		CorrectionAge:    ptrAs[int32](p.CorrectionAge),
	}
}

// Position maps the row back, checking ranges as a wire decode would.
func (r PositionRecord) Position() (gnss.Position, error) {
	p := gnss.Position{
		Timestamp: uint64(r.Timestamp),

		Latitude:    opt(r.Latitude),
		Longitude:   opt(r.Longitude),
		AltitudeMSL: opt(r.AltitudeMSL),
		AltitudeEll: opt(r.AltitudeEll),
		HSpeed:      opt(r.HSpeed),
		VSpeed:      opt(r.VSpeed),
		Heading:     opt(r.Heading),

		PDOP:              opt(r.PDOP),
		HDOP:              opt(r.HDOP),
		VDOP:              opt(r.VDOP),
		UsedSatellites:    optAs[uint16](r.UsedSatellites),
		TrackedSatellites: optAs[uint16](r.TrackedSatellites),
		VisibleSatellites: optAs[uint16](r.VisibleSatellites),

		SigmaHPosition: opt(r.SigmaHPosition),
		SigmaAltitude:  opt(r.SigmaAltitude),
		SigmaHSpeed:    opt(r.SigmaHSpeed),
		SigmaVSpeed:    opt(r.SigmaVSpeed),
		SigmaHeading:   opt(r.SigmaHeading),

		FixStatus:        optAs[gnss.FixStatus](r.FixStatus),
		FixType:          optAs[gnss.FixType](r.FixType),
		ActivatedSystems: optAs[gnss.System](r.ActivatedSystems),
		UsedSystems:      optAs[gnss.System](r.UsedSystems),
		CorrectionAge:    optAs[uint16](r.CorrectionAge),
	}
	if err := p.Validate(); err != nil {
		return gnss.Position{}, err
	}
	return p, nil
}
