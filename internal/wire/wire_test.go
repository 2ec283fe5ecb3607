// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"bytes"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

func samplePosition() gnss.Position {
	return gnss.Position{
		Timestamp:        1733492096000,
		Latitude:         gnss.Some(-33.8688),
		Longitude:        gnss.Some(151.2093),
		AltitudeMSL:      gnss.Some(float32(58.25)),
		HSpeed:           gnss.Some(float32(0)),
		Heading:          gnss.Some(float32(359.5)),
		HDOP:             gnss.Some(float32(0.8)),
		UsedSatellites:   gnss.Some(uint16(11)),
		SigmaHeading:     gnss.Some(float32(1.25)),
		FixStatus:        gnss.Some(gnss.FixStatus3D),
		FixType:          gnss.Some(gnss.FixTypeMultiConstellation | gnss.FixTypeRTKFixed),
		ActivatedSystems: gnss.Some(gnss.SystemGPS | gnss.SystemGalileo),
		UsedSystems:      gnss.Some(gnss.SystemGPS),
	}
}

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, 26, TimeSize)
	assert.Equal(t, 30, SatelliteSize)
	assert.Equal(t, 104, PositionSize)
}

func TestPositionRoundTripIsBitIdentical(t *testing.T) {
	p := samplePosition()
	frame, err := MarshalPosition(p)
	require.NoError(t, err)
	assert.Len(t, frame, headerLen+PositionSize)
	assert.Equal(t, []byte{'G', byte(KindPosition), Version, 0}, frame[:headerLen])

	back, err := UnmarshalPosition(frame)
	require.NoError(t, err)
	assert.Equal(t, p, back)

	lat, _ := back.Latitude.Get()
	assert.Equal(t, math.Float64bits(-33.8688), math.Float64bits(lat))
	h, _ := back.Heading.Get()
	assert.Equal(t, math.Float32bits(359.5), math.Float32bits(h))
	assert.False(t, back.VSpeed.Valid())
}

func TestValidityMaskOnWire(t *testing.T) {
	frame, err := MarshalPosition(gnss.Position{
		Latitude:  gnss.Some(10.0),
		Longitude: gnss.Some(20.0),
	})
	require.NoError(t, err)
	mask := order.Uint32(frame[len(frame)-4:])
	assert.Equal(t, uint32(gnss.PositionLatitudeValid|gnss.PositionLongitudeValid), mask)
}

func TestTimeAndSatelliteFrames(t *testing.T) {
	tm := gnss.Time{
		Timestamp:   99,
		Date:        gnss.Some(gnss.Date{Year: 2016, Month: 11, Day: 31}),
		Clock:       gnss.Some(gnss.Clock{Hour: 23, Minute: 59, Second: 60}),
		Scale:       gnss.Some(gnss.TimeScaleUTC),
		LeapSeconds: gnss.Some(int8(17)),
	}
	sats := []gnss.SatelliteDetail{
		{Timestamp: 99, System: gnss.Some(gnss.SystemGPS), ID: gnss.Some(uint16(7)), CNo: gnss.Some(uint16(42)), Used: gnss.Some(true)},
		{Timestamp: 99, System: gnss.Some(gnss.SystemSBASEGNOS), ID: gnss.Some(uint16(123)), PosResidual: gnss.Some(int16(-12))},
	}

	for _, v := range []any{tm, sats[0], sats} {
		frame, err := Marshal(v)
		require.NoError(t, err)
		back, err := Unmarshal(frame)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}

	empty, err := MarshalSatellites(nil)
	require.NoError(t, err)
	got, err := UnmarshalSatellites(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarshalRejectsInvalidRecords(t *testing.T) {
	_, err := Marshal(gnss.Position{Heading: gnss.Some(float32(360))})
	assert.ErrorIs(t, err, gnss.ErrOutOfRange)
	_, err = Marshal(gnss.Time{Clock: gnss.Some(gnss.Clock{Second: 61})})
	assert.ErrorIs(t, err, gnss.ErrOutOfRange)
	_, err = Marshal("position")
	assert.Error(t, err)
}

func TestHeaderErrors(t *testing.T) {
	frame, err := MarshalPosition(samplePosition())
	require.NoError(t, err)

	_, err = Unmarshal(frame[:2])
	assert.ErrorIs(t, err, ErrShortFrame)

	bad := bytes.Clone(frame)
	bad[0] = 'X'
	_, err = Unmarshal(bad)
	assert.ErrorIs(t, err, ErrBadMagic)

	bad = bytes.Clone(frame)
	bad[2] = 9
	_, err = Unmarshal(bad)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	bad = bytes.Clone(frame)
	bad[1] = 42
	_, err = Unmarshal(bad)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = UnmarshalPosition(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = UnmarshalTime(frame)
	assert.Error(t, err, "kind mismatch")
}

func TestDecodeRejectsUndefinedValidityBits(t *testing.T) {
	frame, err := MarshalPosition(samplePosition())
	require.NoError(t, err)
	order.PutUint32(frame[len(frame)-4:], 0x80000000)
	_, err = UnmarshalPosition(frame)
	assert.ErrorIs(t, err, gnss.ErrUnknownValidity)
}

func TestStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	p := samplePosition()
	tm := gnss.TimeFromUTC(p.Timestamp, time.UnixMilli(int64(p.Timestamp)))
	require.NoError(t, w.Write(p))
	require.NoError(t, w.Write(tm))
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.Frames())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, p, v)
	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, tm, v)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)

	truncated := NewReader(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
	_, err = truncated.Next()
	require.NoError(t, err)
	_, err = truncated.Next()
	assert.ErrorIs(t, err, ErrShortFrame)
}
