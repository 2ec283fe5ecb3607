// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package track

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

func fix(ts uint64, lat, lon float64) gnss.Position {
	return gnss.Position{
		Timestamp:      ts,
		Latitude:       gnss.Some(lat),
		Longitude:      gnss.Some(lon),
		AltitudeMSL:    gnss.Some(float32(120)),
		UsedSatellites: gnss.Some(uint16(8)),
		HDOP:           gnss.Some(float32(0.9)),
		FixStatus:      gnss.Some(gnss.FixStatus3D),
		FixType:        gnss.Some(gnss.FixTypeSingleFrequency),
	}
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	assert.Empty(t, h.Positions())

	assert.False(t, h.Add(gnss.Position{Timestamp: 1, Latitude: gnss.Some(1.0)}), "latitude alone is not a fix")
	for i := uint64(1); i <= 5; i++ {
		assert.True(t, h.Add(fix(i, float64(i), 0)))
	}
	assert.Equal(t, 3, h.Len())

	var ts []uint64
	for _, p := range h.Positions() {
		ts = append(ts, p.Timestamp)
	}
	assert.Equal(t, []uint64{3, 4, 5}, ts)
}

func TestFeatureCollection(t *testing.T) {
	ps := []gnss.Position{fix(1, 0, 0), fix(2, 0.001, 0), fix(3, 0.002, 0)}
	fc := FeatureCollection(ps)
	require.Len(t, fc.Features, 2)

	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{0, 0.002}, ls[2])
	assert.InDelta(t, 222.6, fc.Features[0].Properties["length_m"], 0.1)

	head := fc.Features[1]
	assert.Equal(t, orb.Point{0, 0.002}, head.Geometry)
	assert.Equal(t, "3d", head.Properties["fix"])
	_, hasSpeed := head.Properties["h_speed"]
	assert.False(t, hasSpeed, "invalid speed left out")

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"LineString"`)

	assert.Empty(t, FeatureCollection(nil).Features)
}

func TestFeatureCollectionHeadSkipsLostFix(t *testing.T) {
	a := fix(1, 0, 0)
	a.HSpeed = gnss.Some(float32(1.5))
	b := fix(2, 0.001, 0)
	b.HSpeed = gnss.Some(float32(2.5))
	lost := gnss.Position{
		Timestamp: 3,
		HSpeed:    gnss.Some(float32(9)),
		FixStatus: gnss.Some(gnss.FixStatusTime),
	}
	fc := FeatureCollection([]gnss.Position{a, b, lost})
	require.Len(t, fc.Features, 2)

	head := fc.Features[1]
	assert.Equal(t, orb.Point{0, 0.001}, head.Geometry)
	assert.Equal(t, uint64(2), head.Properties["timestamp"])
	assert.Equal(t, "3d", head.Properties["fix"])
	assert.Equal(t, float32(2.5), head.Properties["h_speed"])
	assert.Equal(t, float32(120), head.Properties["altitude_msl"])
}

func TestFixLabel(t *testing.T) {
	tests := []struct {
		status gnss.FixStatus
		kind   gnss.FixType
		want   string
	}{
		{gnss.FixStatusNo, 0, "none"},
		{gnss.FixStatusTime, gnss.FixTypeRTKFixed, "none"},
		{gnss.FixStatus2D, gnss.FixTypeSingleFrequency, "2d"},
		{gnss.FixStatus3D, gnss.FixTypeSingleFrequency, "3d"},
		{gnss.FixStatus3D, gnss.FixTypeSBAS, "dgps"},
		{gnss.FixStatus3D, gnss.FixTypeDGNSS, "dgps"},
		{gnss.FixStatus3D, gnss.FixTypeRTKFloat, "rtk"},
		{gnss.FixStatus3D, gnss.FixTypePPP, "ppp"},
		{gnss.FixStatus2D, gnss.FixTypeDeadReckoning, "dr"},
		{gnss.FixStatus3D, gnss.FixTypeSimulatorMode | gnss.FixTypeRTKFixed, "sim"},
	}
	for _, tt := range tests {
		p := gnss.Position{FixStatus: gnss.Some(tt.status), FixType: gnss.Some(tt.kind)}
		assert.Equal(t, tt.want, FixLabel(p), "%s %s", tt.status, tt.kind)
	}
	assert.Equal(t, "none", FixLabel(gnss.Position{}))
}

func TestGPX(t *testing.T) {
	rtk := fix(2000, 45.1, 7.2)
	rtk.FixType = gnss.Some(gnss.FixTypeRTKFixed)
	rtk.CorrectionAge = gnss.Some(uint16(2))
	noAlt := fix(3000, 45.2, 7.3)
	noAlt.AltitudeMSL = gnss.Opt[float32]{}

	doc := GPX("drive", []gnss.Position{fix(1000, 45.0, 7.1), rtk, {Timestamp: 2500}, noAlt})
	data, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	require.NoError(t, err)

	back, err := gpx.ParseBytes(data)
	require.NoError(t, err)
	require.Len(t, back.Tracks, 1)
	assert.Equal(t, "drive", back.Tracks[0].Name)
	pts := back.Tracks[0].Segments[0].Points
	require.Len(t, pts, 3, "position without fix skipped")

	assert.Equal(t, 45.0, pts[0].Latitude)
	assert.Equal(t, 120.0, pts[0].Elevation.Value())
	assert.Equal(t, "3d", pts[0].TypeOfGpsFix)
	assert.Equal(t, 8, pts[0].Satellites.Value())
	assert.Equal(t, int64(1000), pts[0].Timestamp.UnixMilli())

	assert.Equal(t, "dgps", pts[1].TypeOfGpsFix)
	assert.Equal(t, "rtk", pts[1].Type)
	assert.Equal(t, 2.0, pts[1].AgeOfDGpsData.Value())

	assert.False(t, pts[2].Elevation.NotNull())
}
