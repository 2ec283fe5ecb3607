// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package simulator replays a scripted route as a GNSS receiver would,
// flagging every fix as SIMULATOR_MODE.
package simulator

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// Waypoint is one corner of the route.
type Waypoint struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	Alt float64 `yaml:"alt"` // m above mean sea level
}

// Satellite is one entry of the simulated constellation.
type Satellite struct {
	System    string `yaml:"system"`
	ID        uint16 `yaml:"id"`
	Azimuth   uint16 `yaml:"azimuth"`
	Elevation uint16 `yaml:"elevation"`
	CNo       uint16 `yaml:"cno"`
	Used      bool   `yaml:"used"`
}

// Accuracy holds the reported dilutions and standard deviations.
type Accuracy struct {
	PDOP           float32 `yaml:"pdop"`
	HDOP           float32 `yaml:"hdop"`
	VDOP           float32 `yaml:"vdop"`
	SigmaHPosition float32 `yaml:"sigma_h_position"`
	SigmaAltitude  float32 `yaml:"sigma_altitude"`
	SigmaHSpeed    float32 `yaml:"sigma_h_speed"`
	SigmaVSpeed    float32 `yaml:"sigma_v_speed"`
	SigmaHeading   float32 `yaml:"sigma_heading"`
}

// Route is the YAML route file.
type Route struct {
	Name            string      `yaml:"name"`
	RateHz          float64     `yaml:"rate_hz"`
	Speed           float64     `yaml:"speed"` // m/s
	Start           time.Time   `yaml:"start"` // zero: wall clock at startup
	LeapSeconds     int         `yaml:"leap_seconds"`
	GeoidSeparation float64     `yaml:"geoid_separation"` // m, ellipsoid minus MSL
	Systems         []string    `yaml:"systems"`
	Accuracy        Accuracy    `yaml:"accuracy"`
	Waypoints       []Waypoint  `yaml:"waypoints"`
	Satellites      []Satellite `yaml:"satellites"`

	activated gnss.System
	sats      []gnss.SatelliteDetail
}

func defaultAccuracy() Accuracy {
	return Accuracy{
		PDOP:           1.8,
		HDOP:           1.0,
		VDOP:           1.5,
		SigmaHPosition: 2.5,
		SigmaAltitude:  4.0,
		SigmaHSpeed:    0.1,
		SigmaVSpeed:    0.2,
		SigmaHeading:   1.0,
	}
}

// LoadRoute reads and parses a route file.
func LoadRoute(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route: %w", err)
	}
	return ParseRoute(data)
}

// ParseRoute parses and checks a route document.
func ParseRoute(data []byte) (*Route, error) {
	r := Route{RateHz: 1, LeapSeconds: -1, Accuracy: defaultAccuracy()}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse route: %w", err)
	}
	if err := r.prepare(); err != nil {
		return nil, fmt.Errorf("route %q: %w", r.Name, err)
	}
	return &r, nil
}

func (r *Route) prepare() error {
	var errs []error
	if len(r.Waypoints) == 0 {
		errs = append(errs, errors.New("no waypoints"))
	}
	if r.RateHz <= 0 || r.RateHz > 50 {
		errs = append(errs, fmt.Errorf("rate_hz %g must be in (0, 50]", r.RateHz))
	}
	if r.Speed < 0 {
		errs = append(errs, fmt.Errorf("speed %g is negative", r.Speed))
	}
	if r.LeapSeconds < -1 || r.LeapSeconds > 127 {
		errs = append(errs, fmt.Errorf("leap_seconds %d out of range", r.LeapSeconds))
	}
	for i, w := range r.Waypoints {
		if w.Lat < -90 || w.Lat > 90 || w.Lon < -180 || w.Lon > 180 {
			errs = append(errs, fmt.Errorf("waypoint %d (%g, %g) out of range", i, w.Lat, w.Lon))
		}
	}

	for _, name := range r.Systems {
		sys, err := gnss.ParseSystems(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.activated |= sys
	}

	r.sats = r.sats[:0]
	for i, s := range r.Satellites {
		sys, err := gnss.ParseSystems(s.System)
		if err != nil || !sys.Single() {
			errs = append(errs, fmt.Errorf("satellite %d: system %q must name one system", i, s.System))
			continue
		}
		d := gnss.SatelliteDetail{
			System:             gnss.Some(sys),
			ID:                 gnss.Some(s.ID),
			Azimuth:            gnss.Some(s.Azimuth),
			Elevation:          gnss.Some(s.Elevation),
			CNo:                gnss.Some(s.CNo),
			Used:               gnss.Some(s.Used),
			EphemerisAvailable: gnss.Some(s.CNo > 0),
			PosResidual:        gnss.Some(int16(0)),
		}
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("satellite %d: %w", i, err))
			continue
		}
		if s.Used {
			r.activated |= sys
		}
		r.sats = append(r.sats, d)
	}
	if r.activated == 0 {
		r.activated = gnss.SystemGPS
	}
	return errors.Join(errs...)
}

// Activated returns the systems reported as activated.
func (r *Route) Activated() gnss.System {
	return r.activated
}
