// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wire encodes GNSS records into versioned binary frames.
//
// A frame is a 4-byte header ('G', kind, version, reserved) followed by the
// packed little-endian raw layout of the record, field by field, validity
// mask included. Invalid fields are written as zero and never read back.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

const (
	Magic   byte = 'G'
	Version byte = 1

	headerLen = 4
)

// Kind identifies the record carried by a frame.
type Kind byte

const (
	KindTime       Kind = 1
	KindSatellite  Kind = 2
	KindPosition   Kind = 3
	KindSatellites Kind = 4 // uint16 count followed by satellite records
)

func (k Kind) String() string {
	switch k {
	case KindTime:
		return "time"
	case KindSatellite:
		return "satellite"
	case KindPosition:
		return "position"
	case KindSatellites:
		return "satellites"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

var (
	ErrShortFrame         = errors.New("wire: short frame")
	ErrBadMagic           = errors.New("wire: bad magic")
	ErrUnsupportedVersion = errors.New("wire: unsupported version")
	ErrUnknownKind        = errors.New("wire: unknown kind")
)

var order = binary.LittleEndian

// Payload sizes of the packed raw layouts.
var (
	TimeSize      = binary.Size(gnss.RawTime{})
	SatelliteSize = binary.Size(gnss.RawSatelliteDetail{})
	PositionSize  = binary.Size(gnss.RawPosition{})
)

func header(k Kind) []byte {
	return []byte{Magic, byte(k), Version, 0}
}

// Marshal encodes a Time, SatelliteDetail, Position or []SatelliteDetail.
// The record is validated first; a frame never carries out-of-range data.
func Marshal(v any) ([]byte, error) {
	switch r := v.(type) {
	case gnss.Time:
		return MarshalTime(r)
	case gnss.SatelliteDetail:
		return MarshalSatellite(r)
	case gnss.Position:
		return MarshalPosition(r)
	case []gnss.SatelliteDetail:
		return MarshalSatellites(r)
	}
	return nil, fmt.Errorf("wire: cannot marshal %T", v)
}

func MarshalTime(t gnss.Time) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return binary.Append(header(KindTime), order, t.Raw())
}

func MarshalSatellite(s gnss.SatelliteDetail) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return binary.Append(header(KindSatellite), order, s.Raw())
}

func MarshalPosition(p gnss.Position) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return binary.Append(header(KindPosition), order, p.Raw())
}

func MarshalSatellites(sats []gnss.SatelliteDetail) ([]byte, error) {
	if len(sats) > 0xFFFF {
		return nil, fmt.Errorf("wire: %d satellites in one frame", len(sats))
	}
	buf := order.AppendUint16(header(KindSatellites), uint16(len(sats)))
	for i, s := range sats {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("wire: satellite %d: %w", i, err)
		}
		var err error
		if buf, err = binary.Append(buf, order, s.Raw()); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// PeekKind checks the frame header and returns the record kind.
func PeekKind(data []byte) (Kind, error) {
	if len(data) < headerLen {
		return 0, ErrShortFrame
	}
	if data[0] != Magic {
		return 0, ErrBadMagic
	}
	if data[2] != Version {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[2])
	}
	k := Kind(data[1])
	if k < KindTime || k > KindSatellites {
		return 0, fmt.Errorf("%w: %d", ErrUnknownKind, data[1])
	}
	return k, nil
}

// Unmarshal decodes any frame into gnss.Time, gnss.SatelliteDetail,
// gnss.Position or []gnss.SatelliteDetail.
func Unmarshal(data []byte) (any, error) {
	k, err := PeekKind(data)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindTime:
		return UnmarshalTime(data)
	case KindSatellite:
		return UnmarshalSatellite(data)
	case KindPosition:
		return UnmarshalPosition(data)
	default:
		return UnmarshalSatellites(data)
	}
}

func payload(data []byte, want Kind, size int) ([]byte, error) {
	k, err := PeekKind(data)
	if err != nil {
		return nil, err
	}
	if k != want {
		return nil, fmt.Errorf("wire: frame is %s, want %s", k, want)
	}
	body := data[headerLen:]
	if size >= 0 && len(body) != size {
		return nil, fmt.Errorf("%w: %s payload %d bytes, want %d", ErrShortFrame, k, len(body), size)
	}
	return body, nil
}

func UnmarshalTime(data []byte) (gnss.Time, error) {
	body, err := payload(data, KindTime, TimeSize)
	if err != nil {
		return gnss.Time{}, err
	}
	var raw gnss.RawTime
	if _, err := binary.Decode(body, order, &raw); err != nil {
		return gnss.Time{}, fmt.Errorf("wire: %w", err)
	}
	return gnss.TimeFromRaw(raw)
}

func UnmarshalSatellite(data []byte) (gnss.SatelliteDetail, error) {
	body, err := payload(data, KindSatellite, SatelliteSize)
	if err != nil {
		return gnss.SatelliteDetail{}, err
	}
	var raw gnss.RawSatelliteDetail
	if _, err := binary.Decode(body, order, &raw); err != nil {
		return gnss.SatelliteDetail{}, fmt.Errorf("wire: %w", err)
	}
	return gnss.SatelliteDetailFromRaw(raw)
}

func UnmarshalPosition(data []byte) (gnss.Position, error) {
	body, err := payload(data, KindPosition, PositionSize)
	if err != nil {
		return gnss.Position{}, err
	}
	var raw gnss.RawPosition
	if _, err := binary.Decode(body, order, &raw); err != nil {
		return gnss.Position{}, fmt.Errorf("wire: %w", err)
	}
	return gnss.PositionFromRaw(raw)
}

func UnmarshalSatellites(data []byte) ([]gnss.SatelliteDetail, error) {
	body, err := payload(data, KindSatellites, -1)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 {
		return nil, ErrShortFrame
	}
	n := int(order.Uint16(body))
	body = body[2:]
	if len(body) != n*SatelliteSize {
		return nil, fmt.Errorf("%w: %d satellites need %d bytes, have %d", ErrShortFrame, n, n*SatelliteSize, len(body))
	}
	sats := make([]gnss.SatelliteDetail, 0, n)
	for i := 0; i < n; i++ {
		var raw gnss.RawSatelliteDetail
		if _, err := binary.Decode(body[i*SatelliteSize:(i+1)*SatelliteSize], order, &raw); err != nil {
			return nil, fmt.Errorf("wire: satellite %d: %w", i, err)
		}
		s, err := gnss.SatelliteDetailFromRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("wire: satellite %d: %w", i, err)
		}
		sats = append(sats, s)
	}
	return sats, nil
}
