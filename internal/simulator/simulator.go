// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package simulator

import (
	"context"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
	"github.com/relabs-tech/gnss_positioning/internal/receiver"
)

// Simulator walks a Route at constant speed, closing the loop from the
// last waypoint back to the first. It implements receiver.Source.
type Simulator struct {
	route *Route
	clock receiver.Clock

	// Realtime paces Next at the route rate. When false epochs are
	// produced as fast as they are read.
	Realtime bool
	ticker   *time.Ticker

	start time.Time
	total float64 // m, length of the closed route
	seg   int
	along float64 // m from Waypoints[seg]
	n     int64
}

func New(route *Route, clock receiver.Clock) *Simulator {
	if clock == nil {
		clock = receiver.SystemClock
	}
	s := &Simulator{route: route, clock: clock, start: route.Start}
	if s.start.IsZero() {
		s.start = time.UnixMilli(int64(clock())).UTC()
	}
	for i := range route.Waypoints {
		s.total += s.segmentLength(i)
	}
	return s
}

func (s *Simulator) interval() time.Duration {
	return time.Duration(float64(time.Second) / s.route.RateHz)
}

func point(w Waypoint) orb.Point {
	return orb.Point{w.Lon, w.Lat}
}

func (s *Simulator) segment(i int) (Waypoint, Waypoint) {
	w := s.route.Waypoints
	return w[i], w[(i+1)%len(w)]
}

func (s *Simulator) segmentLength(i int) float64 {
	a, b := s.segment(i)
	return geo.Distance(point(a), point(b))
}

// Next returns the epoch at the current route position and moves on.
func (s *Simulator) Next(ctx context.Context) (receiver.Epoch, error) {
	if s.Realtime {
		if s.ticker == nil {
			s.ticker = time.NewTicker(s.interval())
		}
		select {
		case <-ctx.Done():
			return receiver.Epoch{}, ctx.Err()
		case <-s.ticker.C:
		}
	} else if err := ctx.Err(); err != nil {
		return receiver.Epoch{}, err
	}

	ep := s.epoch()
	s.advance(s.route.Speed * s.interval().Seconds())
	s.n++
	return ep, nil
}

// Close stops the pacing ticker.
func (s *Simulator) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}

func (s *Simulator) advance(d float64) {
	if s.total == 0 {
		return
	}
	d = math.Mod(d, s.total)
	for {
		remaining := s.segmentLength(s.seg) - s.along
		if d < remaining {
			s.along += d
			return
		}
		d -= remaining
		s.seg = (s.seg + 1) % len(s.route.Waypoints)
		s.along = 0
	}
}

func (s *Simulator) epoch() receiver.Epoch {
	ts := s.clock()
	r := s.route

	a, b := s.segment(s.seg)
	pos := point(a)
	alt := a.Alt
	var heading, climb, speed float64
	if l := s.segmentLength(s.seg); l > 0 {
		bearing := geo.Bearing(point(a), point(b))
		pos = geo.PointAtBearingAndDistance(point(a), bearing, s.along)
		alt += (b.Alt - a.Alt) * s.along / l
		heading = bearing
		climb = (b.Alt - a.Alt) / l * r.Speed
		speed = r.Speed
	}

	sats := make([]gnss.SatelliteDetail, len(r.sats))
	var tracked, used uint16
	var usedSystems gnss.System
	for i, d := range r.sats {
		d.Timestamp = ts
		sats[i] = d
		if d.Tracking() {
			tracked++
		}
		if d.Used.Or(false) {
			used++
			usedSystems |= d.System.Or(0)
		}
	}

	fixType := gnss.FixTypeSimulatorMode | gnss.FixTypeSingleFrequency
	if usedSystems.MultiConstellation() {
		fixType |= gnss.FixTypeMultiConstellation
	}

	acc := r.Accuracy
	p := gnss.Position{
		Timestamp:         ts,
		Latitude:          gnss.Some(pos.Lat()),
		Longitude:         gnss.Some(pos.Lon()),
		AltitudeMSL:       gnss.Some(float32(alt)),
		AltitudeEll:       gnss.Some(float32(alt + r.GeoidSeparation)),
		HSpeed:            gnss.Some(float32(speed)),
		VSpeed:            gnss.Some(float32(climb)),
		Heading:           gnss.Some(gnss.NormalizeHeading(heading)),
		PDOP:              gnss.Some(acc.PDOP),
		HDOP:              gnss.Some(acc.HDOP),
		VDOP:              gnss.Some(acc.VDOP),
		UsedSatellites:    gnss.Some(used),
		TrackedSatellites: gnss.Some(tracked),
		VisibleSatellites: gnss.Some(uint16(len(sats))),
		SigmaHPosition:    gnss.Some(acc.SigmaHPosition),
		SigmaAltitude:     gnss.Some(acc.SigmaAltitude),
		SigmaHSpeed:       gnss.Some(acc.SigmaHSpeed),
		SigmaVSpeed:       gnss.Some(acc.SigmaVSpeed),
		SigmaHeading:      gnss.Some(acc.SigmaHeading),
		FixStatus:         gnss.Some(gnss.FixStatus3D),
		FixType:           gnss.Some(fixType),
		ActivatedSystems:  gnss.Some(r.activated),
		UsedSystems:       gnss.Some(usedSystems),
	}

	t := gnss.TimeFromUTC(ts, s.start.Add(time.Duration(s.n)*s.interval()))
	if r.LeapSeconds >= 0 {
		t.LeapSeconds = gnss.Some(int8(r.LeapSeconds))
	}

	return receiver.Epoch{Position: p, Time: t, Satellites: sats}
}
