// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package simulator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

const shuttle = `
name: shuttle
rate_hz: 1
speed: 100
start: 2026-03-01T10:00:00Z
leap_seconds: 18
geoid_separation: 47.5
systems: [GPS, GALILEO]
accuracy:
  sigma_h_position: 1.5
waypoints:
  - {lat: 0, lon: 0, alt: 100}
  - {lat: 0.001, lon: 0, alt: 200}
satellites:
  - {system: GPS, id: 4, azimuth: 83, elevation: 40, cno: 46, used: true}
  - {system: GALILEO, id: 11, azimuth: 200, elevation: 60, cno: 41, used: true}
  - {system: GPS, id: 30, azimuth: 10, elevation: 5, cno: 0}
`

// metres along a meridian to degrees of latitude
func deg(m float64) float64 {
	return m / 6378137 * 180 / math.Pi
}

func mask[T ~uint32](bits []T) T {
	var m T
	for _, b := range bits {
		m |= b
	}
	return m
}

func newShuttle(t *testing.T) *Simulator {
	t.Helper()
	r, err := ParseRoute([]byte(shuttle))
	require.NoError(t, err)
	var ms uint64
	return New(r, func() uint64 {
		ms += 1000
		return ms
	})
}

func TestParseRoute(t *testing.T) {
	r, err := ParseRoute([]byte(shuttle))
	require.NoError(t, err)
	assert.Equal(t, "shuttle", r.Name)
	assert.Len(t, r.Waypoints, 2)
	assert.Equal(t, gnss.SystemGPS|gnss.SystemGalileo, r.Activated())
	assert.Equal(t, float32(1.5), r.Accuracy.SigmaHPosition)
	assert.Equal(t, float32(1.8), r.Accuracy.PDOP, "defaults kept for missing keys")
}

func TestParseRouteErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no waypoints", "speed: 1\n"},
		{"bad rate", "rate_hz: 0\nwaypoints: [{lat: 0, lon: 0}]\n"},
		{"bad latitude", "waypoints: [{lat: 91, lon: 0}]\n"},
		{"bad system", "systems: [NAVIC]\nwaypoints: [{lat: 0, lon: 0}]\n"},
		{"combined satellite system", "waypoints: [{lat: 0, lon: 0}]\nsatellites: [{system: 'GPS|GALILEO', id: 1}]\n"},
		{"satellite range", "waypoints: [{lat: 0, lon: 0}]\nsatellites: [{system: GPS, id: 1, elevation: 91}]\n"},
		{"not yaml", "waypoints: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoute([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestFullyPopulatedEpochs(t *testing.T) {
	sim := newShuttle(t)
	for i := 0; i < 5; i++ {
		ep, err := sim.Next(context.Background())
		require.NoError(t, err)

		p := ep.Position
		require.NoError(t, p.Validate())
		assert.NoError(t, p.CheckConsistency())
		// no correction data in a simulated fix
		assert.Equal(t, mask(gnss.PositionValidityBits())&^gnss.PositionCorrectionAgeValid, p.Validity())
		assert.True(t, p.FixType.Or(0).Has(gnss.FixTypeSimulatorMode))
		assert.True(t, p.FixType.Or(0).Has(gnss.FixTypeMultiConstellation))
		assert.Equal(t, gnss.Some(gnss.FixStatus3D), p.FixStatus)
		assert.Equal(t, gnss.Some(uint16(2)), p.UsedSatellites)
		assert.Equal(t, gnss.Some(uint16(2)), p.TrackedSatellites)
		assert.Equal(t, gnss.Some(uint16(3)), p.VisibleSatellites)

		require.NoError(t, ep.Time.Validate())
		assert.Equal(t, mask(gnss.TimeValidityBits()), ep.Time.Validity())
		assert.Equal(t, p.Timestamp, ep.Time.Timestamp)
		for _, s := range ep.Satellites {
			assert.Equal(t, p.Timestamp, s.Timestamp)
			assert.Equal(t, mask(gnss.SatelliteValidityBits()), s.Validity())
		}
	}
}

func TestWalksAndLoops(t *testing.T) {
	sim := newShuttle(t)
	segLen := 0.001 / deg(1) // m between the two waypoints

	wantLat := []float64{0, deg(100), 0.001 - deg(200-segLen), deg(300 - 2*segLen)}
	wantHeading := []float32{0, 0, 180, 0}
	for i, want := range wantLat {
		ep, err := sim.Next(context.Background())
		require.NoError(t, err)
		lat, _ := ep.Position.Latitude.Get()
		assert.InDelta(t, want, lat, 1e-7, "epoch %d", i)
		h, _ := ep.Position.Heading.Get()
		assert.InDelta(t, wantHeading[i], h, 1e-3, "epoch %d", i)

		c, _ := ep.Time.Clock.Get()
		assert.Equal(t, uint8(i), c.Second)
		assert.Equal(t, gnss.Some(int8(18)), ep.Time.LeapSeconds)
	}
}

func TestAltitudeAndClimb(t *testing.T) {
	sim := newShuttle(t)
	ep, err := sim.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gnss.Some(float32(100)), ep.Position.AltitudeMSL)
	assert.Equal(t, gnss.Some(float32(147.5)), ep.Position.AltitudeEll)
	climb, _ := ep.Position.VSpeed.Get()
	assert.InDelta(t, 100*100/(0.001/deg(1)), climb, 1e-3)
}

func TestSingleWaypointIsStationary(t *testing.T) {
	r, err := ParseRoute([]byte("speed: 5\nwaypoints: [{lat: 45, lon: 7, alt: 300}]\n"))
	require.NoError(t, err)
	sim := New(r, nil)
	for i := 0; i < 3; i++ {
		ep, err := sim.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, gnss.Some(45.0), ep.Position.Latitude)
		assert.Equal(t, gnss.Some(7.0), ep.Position.Longitude)
		assert.Equal(t, gnss.Some(float32(0)), ep.Position.HSpeed)
		assert.Equal(t, gnss.Some(gnss.SystemGPS), ep.Position.ActivatedSystems)
		assert.False(t, ep.Time.LeapSeconds.Valid())
	}
}

func TestRealtimeHonoursContext(t *testing.T) {
	sim := newShuttle(t)
	sim.Realtime = true
	defer sim.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
