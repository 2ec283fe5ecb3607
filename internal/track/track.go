// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package track keeps the recent positions of the receiver and renders
// them as GeoJSON or GPX.
package track

import (
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// History is a fixed size ring of positions with a horizontal fix.
// It is safe for concurrent use.
type History struct {
	mu   sync.RWMutex
	buf  []gnss.Position
	next int
	full bool
}

func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{buf: make([]gnss.Position, size)}
}

// Add records p if it carries latitude and longitude. It reports
// whether p was kept.
func (h *History) Add(p gnss.Position) bool {
	if !p.HasHorizontal() {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = p
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
	return true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Positions returns a copy of the history, oldest first.
func (h *History) Positions() []gnss.Position {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.full {
		return append([]gnss.Position(nil), h.buf[:h.next]...)
	}
	out := make([]gnss.Position, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

// LineString returns the horizontal path; positions without a fix are
// skipped.
func LineString(ps []gnss.Position) orb.LineString {
	ls := make(orb.LineString, 0, len(ps))
	for _, p := range ps {
		lat, okLat := p.Latitude.Get()
		lon, okLon := p.Longitude.Get()
		if okLat && okLon {
			ls = append(ls, orb.Point{lon, lat})
		}
	}
	return ls
}

// FeatureCollection renders the path as a LineString feature followed by
// a Point feature for the latest fix.
func FeatureCollection(ps []gnss.Position) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	ls := LineString(ps)
	if len(ls) == 0 {
		return fc
	}

	path := geojson.NewFeature(ls)
	path.Properties["points"] = len(ls)
	path.Properties["length_m"] = math.Round(geo.Length(ls)*10) / 10
	fc.Append(path)

	var last gnss.Position
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i].HasHorizontal() {
			last = ps[i]
			break
		}
	}
	head := geojson.NewFeature(ls[len(ls)-1])
	head.Properties["timestamp"] = last.Timestamp
	head.Properties["fix"] = FixLabel(last)
	if v, ok := last.AltitudeMSL.Get(); ok {
		head.Properties["altitude_msl"] = v
	}
	if v, ok := last.HSpeed.Get(); ok {
		head.Properties["h_speed"] = v
	}
	if v, ok := last.Heading.Get(); ok {
		head.Properties["heading"] = v
	}
	fc.Append(head)
	return fc
}

// FixLabel names the fix the way GPX <fix> does (none, 2d, 3d, dgps),
// adding rtk, ppp, sim and dr for fixes GPX cannot express.
func FixLabel(p gnss.Position) string {
	status := p.FixStatus.Or(gnss.FixStatusNo)
	kind := p.FixType.Or(0)
	switch {
	case status < gnss.FixStatus2D:
		return "none"
	case kind.Has(gnss.FixTypeSimulatorMode):
		return "sim"
	case kind&(gnss.FixTypeRTKFixed|gnss.FixTypeRTKFloat) != 0:
		return "rtk"
	case kind&(gnss.FixTypeEstimated|gnss.FixTypeDeadReckoning) != 0:
		return "dr"
	case kind&(gnss.FixTypeDGNSS|gnss.FixTypeSBAS) != 0:
		return "dgps"
	case kind.Has(gnss.FixTypePPP):
		return "ppp"
	case status == gnss.FixStatus3D:
		return "3d"
	}
	return "2d"
}

// gpxFix maps the label onto the values the GPX 1.1 schema accepts.
func gpxFix(label string) string {
	switch label {
	case "rtk":
		return "dgps"
	case "ppp", "sim", "dr":
		return ""
	}
	return label
}

// GPX builds a one-track document. Each position becomes a track point,
// with its invalid fields left out.
func GPX(name string, ps []gnss.Position) *gpx.GPX {
	seg := gpx.GPXTrackSegment{}
	for _, p := range ps {
		lat, okLat := p.Latitude.Get()
		lon, okLon := p.Longitude.Get()
		if !okLat || !okLon {
			continue
		}
		pt := gpx.GPXPoint{
			Point:     gpx.Point{Latitude: lat, Longitude: lon},
			Timestamp: time.UnixMilli(int64(p.Timestamp)).UTC(),
		}
		if v, ok := p.AltitudeMSL.Get(); ok {
			pt.Elevation = *gpx.NewNullableFloat64(float64(v))
		}
		label := FixLabel(p)
		pt.TypeOfGpsFix = gpxFix(label)
		pt.Type = label
		if v, ok := p.UsedSatellites.Get(); ok {
			pt.Satellites = *gpx.NewNullableInt(int(v))
		}
		if v, ok := p.HDOP.Get(); ok {
			pt.HorizontalDilution = *gpx.NewNullableFloat64(float64(v))
		}
		if v, ok := p.VDOP.Get(); ok {
			pt.VerticalDilution = *gpx.NewNullableFloat64(float64(v))
		}
		if v, ok := p.PDOP.Get(); ok {
			pt.PositionalDilution = *gpx.NewNullableFloat64(float64(v))
		}
		if v, ok := p.CorrectionAge.Get(); ok {
			pt.AgeOfDGpsData = *gpx.NewNullableFloat64(float64(v))
		}
		seg.Points = append(seg.Points, pt)
	}
	return &gpx.GPX{
		Version: "1.1",
		Creator: "gnss_positioning",
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
}
