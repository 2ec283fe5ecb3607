// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import (
	"math"
	"sort"
	"strconv"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

const (
	knotsToMS = 0.514444444
	kphToMS   = 1 / 3.6
)

// GGA fix quality indicator.
const (
	qualityInvalid   = "0"
	qualityGPS       = "1"
	qualityDGPS      = "2"
	qualityPPS       = "3"
	qualityRTK       = "4"
	qualityFRTK      = "5"
	qualityEstimated = "6"
	qualityManual    = "7"
	qualitySimulated = "8"
)

// Field positions of optional values; an empty field leaves the value
// unset instead of reading as zero.
const (
	rmcSpeed  = 6
	rmcCourse = 7

	ggaNumSatellites = 6
	ggaHDOP          = 7
	ggaAltitude      = 8
	ggaSeparation    = 10

	vtgTrueTrack  = 0
	vtgSpeedKnots = 4
	vtgSpeedKPH   = 6
)

// gsaSystemTalkers maps the NMEA 4.10 GSA system id to the talker whose
// PRN numbering the listed satellites follow.
var gsaSystemTalkers = map[int64]string{1: "GP", 2: "GL", 3: "GA", 4: "GB"}

// Assembler groups NMEA sentences into epochs. Sentences carrying a time
// of fix (RMC, GGA, GLL, ZDA) open a new epoch when that time changes;
// the others (GSA, GSV, VTG) attach to the epoch in progress.
//
// An Assembler is not safe for concurrent use.
type Assembler struct {
	// Activated is reported as ActivatedSystems on every position.
	Activated gnss.System
	// LeapSeconds is reported on every time sample when >= 0.
	LeapSeconds int

	clock Clock
	cur   *epochState
}

type epochState struct {
	timestamp uint64
	fixTime   nmea.Time
	timed     bool

	date    gnss.Opt[gnss.Date]
	gga     *nmea.GGA
	rmc     *nmea.RMC
	gll     *nmea.GLL
	vtg     *nmea.VTG
	gsaSeen bool
	gsaFix  string
	pdop    float64
	hdop    float64
	vdop    float64

	used map[gnss.SatelliteKey]bool
	sats map[gnss.SatelliteKey]gnss.SatelliteDetail
}

// NewAssembler returns an assembler stamping epochs with clock. A nil
// clock reads the wall clock.
func NewAssembler(activated gnss.System, leapSeconds int, clock Clock) *Assembler {
	if clock == nil {
		clock = SystemClock
	}
	return &Assembler{Activated: activated, LeapSeconds: leapSeconds, clock: clock}
}

func (a *Assembler) state() *epochState {
	if a.cur == nil {
		a.cur = &epochState{
			timestamp: a.clock(),
			used:      make(map[gnss.SatelliteKey]bool),
			sats:      make(map[gnss.SatelliteKey]gnss.SatelliteDetail),
		}
	}
	return a.cur
}

// fixTime moves to the epoch of t, returning the finished previous epoch.
func (a *Assembler) fixTime(t nmea.Time) (Epoch, bool) {
	if !t.Valid {
		a.state()
		return Epoch{}, false
	}
	var done Epoch
	var flushed bool
	if a.cur != nil && a.cur.timed && a.cur.fixTime != t {
		done, flushed = a.Flush()
	}
	st := a.state()
	st.fixTime = t
	st.timed = true
	return done, flushed
}

// Add feeds one sentence. When it starts a new epoch, the previous one is
// returned with ok set.
func (a *Assembler) Add(s nmea.Sentence) (Epoch, bool) {
	var done Epoch
	var ok bool
	switch m := s.(type) {
	case nmea.GGA:
		done, ok = a.fixTime(m.Time)
		a.cur.gga = &m
	case nmea.RMC:
		done, ok = a.fixTime(m.Time)
		a.cur.rmc = &m
		if m.Date.Valid {
			a.cur.date = gnss.Some(gnss.Date{
				Year:  uint16(nmeaYear(m.Date.YY)),
				Month: uint8(m.Date.MM - 1),
				Day:   uint8(m.Date.DD),
			})
		}
	case nmea.GLL:
		done, ok = a.fixTime(m.Time)
		a.cur.gll = &m
	case nmea.ZDA:
		done, ok = a.fixTime(m.Time)
		if m.Year > 0 && m.Month >= 1 && m.Month <= 12 && m.Day >= 1 {
			a.cur.date = gnss.Some(gnss.Date{
				Year:  uint16(m.Year),
				Month: uint8(m.Month - 1),
				Day:   uint8(m.Day),
			})
		}
	case nmea.VTG:
		a.state().vtg = &m
	case nmea.GSA:
		a.addGSA(m)
	case nmea.GSV:
		a.addGSV(m)
	}
	return done, ok
}

func (a *Assembler) addGSA(m nmea.GSA) {
	st := a.state()
	st.gsaSeen = true
	// multi-constellation receivers send one GSA per system; keep the best fix
	if m.FixType > st.gsaFix {
		st.gsaFix = m.FixType
	}
	if m.PDOP > 0 {
		st.pdop = m.PDOP
	}
	if m.HDOP > 0 {
		st.hdop = m.HDOP
	}
	if m.VDOP > 0 {
		st.vdop = m.VDOP
	}
	talker := m.TalkerID()
	if t, ok := gsaSystemTalkers[m.SystemID]; ok {
		talker = t
	}
	for _, sv := range m.SV {
		id, err := strconv.ParseInt(sv, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		sys, ok := SystemFor(talker, id)
		if !ok {
			continue
		}
		st.used[gnss.SatelliteKey{System: sys, ID: uint16(id)}] = true
	}
}

func (a *Assembler) addGSV(m nmea.GSV) {
	st := a.state()
	for _, info := range m.Info {
		if info.SVPRNNumber <= 0 {
			continue
		}
		sys, ok := SystemFor(m.TalkerID(), info.SVPRNNumber)
		if !ok {
			continue
		}
		d := gnss.SatelliteDetail{
			System: gnss.Some(sys),
			ID:     gnss.Some(uint16(info.SVPRNNumber)),
		}
		if info.Azimuth >= 0 && info.Azimuth <= 359 {
			d.Azimuth = gnss.Some(uint16(info.Azimuth))
		}
		if info.Elevation >= 0 && info.Elevation <= 90 {
			d.Elevation = gnss.Some(uint16(info.Elevation))
		}
		if info.SNR >= 0 && info.SNR <= 99 {
			d.CNo = gnss.Some(uint16(info.SNR))
		}
		st.sats[gnss.SatelliteKey{System: sys, ID: uint16(info.SVPRNNumber)}] = d
	}
}

// Pending reports whether sentences are waiting in the epoch in progress.
func (a *Assembler) Pending() bool {
	return a.cur != nil
}

// Flush finishes the epoch in progress, if any.
func (a *Assembler) Flush() (Epoch, bool) {
	st := a.cur
	if st == nil {
		return Epoch{}, false
	}
	a.cur = nil
	return a.build(st), true
}

func (a *Assembler) build(st *epochState) Epoch {
	ep := Epoch{
		Time:       a.buildTime(st),
		Satellites: buildSatellites(st),
	}
	ep.Position = a.buildPosition(st, ep.Satellites)
	return ep
}

func (a *Assembler) buildTime(st *epochState) gnss.Time {
	t := gnss.Time{Timestamp: st.timestamp, Date: st.date}
	if st.timed {
		t.Clock = gnss.Some(gnss.Clock{
			Hour:        uint8(st.fixTime.Hour),
			Minute:      uint8(st.fixTime.Minute),
			Second:      uint8(st.fixTime.Second),
			Millisecond: uint16(st.fixTime.Millisecond),
		})
	}
	if t.Date.Valid() || t.Clock.Valid() {
		t.Scale = gnss.Some(gnss.TimeScaleUTC)
		if a.LeapSeconds >= 0 {
			t.LeapSeconds = gnss.Some(int8(a.LeapSeconds))
		}
	}
	return t
}

func buildSatellites(st *epochState) []gnss.SatelliteDetail {
	keys := make([]gnss.SatelliteKey, 0, len(st.sats))
	for k := range st.sats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].System != keys[j].System {
			return keys[i].System < keys[j].System
		}
		return keys[i].ID < keys[j].ID
	})
	sats := make([]gnss.SatelliteDetail, 0, len(keys))
	for _, k := range keys {
		d := st.sats[k]
		d.Timestamp = st.timestamp
		if st.gsaSeen {
			d.Used = gnss.Some(st.used[k])
		}
		sats = append(sats, d)
	}
	return sats
}

func (a *Assembler) buildPosition(st *epochState, sats []gnss.SatelliteDetail) gnss.Position {
	p := gnss.Position{Timestamp: st.timestamp}
	if a.Activated != 0 {
		p.ActivatedSystems = gnss.Some(a.Activated)
	}

	var fixType gnss.FixType
	fixTypeKnown := false

	if g := st.gga; g != nil {
		fixTypeKnown = true
		if g.FixQuality != qualityInvalid {
			p.Latitude = gnss.Some(g.Latitude)
			p.Longitude = gnss.Some(g.Longitude)
			if present(g.Fields, ggaAltitude) {
				p.AltitudeMSL = gnss.Some(float32(g.Altitude))
				if present(g.Fields, ggaSeparation) {
					p.AltitudeEll = gnss.Some(float32(g.Altitude + g.Separation))
				}
			}
			if present(g.Fields, ggaNumSatellites) {
				p.UsedSatellites = gnss.Some(uint16(g.NumSatellites))
			}
			if present(g.Fields, ggaHDOP) && g.HDOP > 0 {
				p.HDOP = gnss.Some(float32(g.HDOP))
			}
			fixType |= qualityFixType(g.FixQuality)
			if age, err := strconv.ParseFloat(g.DGPSAge, 64); err == nil && age >= 0 && age <= math.MaxUint16 {
				p.CorrectionAge = gnss.Some(uint16(math.Round(age)))
			}
		}
	}

	rmcValid := st.rmc != nil && st.rmc.Validity == nmea.ValidRMC
	if rmcValid {
		r := st.rmc
		if !p.Latitude.Valid() {
			p.Latitude = gnss.Some(r.Latitude)
			p.Longitude = gnss.Some(r.Longitude)
		}
		if present(r.Fields, rmcSpeed) {
			p.HSpeed = gnss.Some(float32(r.Speed * knotsToMS))
		}
		if present(r.Fields, rmcCourse) {
			p.Heading = gnss.Some(gnss.NormalizeHeading(r.Course))
		}
		fixTypeKnown = true
		fixType |= modeFixType(r.FFAMode)
	}
	if l := st.gll; l != nil && l.Validity == nmea.ValidGLL && !p.Latitude.Valid() {
		p.Latitude = gnss.Some(l.Latitude)
		p.Longitude = gnss.Some(l.Longitude)
	}
	if v := st.vtg; v != nil && (rmcValid || p.Latitude.Valid()) {
		switch {
		case present(v.Fields, vtgSpeedKPH):
			p.HSpeed = gnss.Some(float32(v.GroundSpeedKPH * kphToMS))
		case present(v.Fields, vtgSpeedKnots):
			p.HSpeed = gnss.Some(float32(v.GroundSpeedKnots * knotsToMS))
		}
		if present(v.Fields, vtgTrueTrack) {
			p.Heading = gnss.Some(gnss.NormalizeHeading(v.TrueTrack))
		}
	}

	if st.gsaSeen && st.gsaFix >= "2" {
		if st.pdop > 0 {
			p.PDOP = gnss.Some(float32(st.pdop))
		}
		if st.hdop > 0 {
			p.HDOP = gnss.Some(float32(st.hdop))
		}
		if st.vdop > 0 {
			p.VDOP = gnss.Some(float32(st.vdop))
		}
	}

	if len(sats) > 0 {
		var tracked uint16
		var used gnss.System
		for _, s := range sats {
			if s.Tracking() {
				tracked++
			}
			if s.Used.Or(false) {
				used |= s.System.Or(0)
			}
		}
		p.VisibleSatellites = gnss.Some(uint16(len(sats)))
		p.TrackedSatellites = gnss.Some(tracked)
		if st.gsaSeen {
			p.UsedSystems = gnss.Some(used)
			if used.MultiConstellation() {
				fixType |= gnss.FixTypeMultiConstellation
			}
		}
	}
	if fixTypeKnown {
		// differential corrections from a used SBAS satellite
		if fixType&gnss.FixTypeDGNSS != 0 && p.UsedSystems.Or(0)&sbasSystems != 0 {
			fixType = fixType&^gnss.FixTypeDGNSS | gnss.FixTypeSBAS
		}
		p.FixType = gnss.Some(fixType)
	}

	p.FixStatus = gnss.Some(fixStatus(st, p.Latitude.Valid(), rmcValid))
	if s, _ := p.FixStatus.Get(); s == gnss.FixStatus2D {
		p.AltitudeMSL = gnss.Opt[float32]{}
		p.AltitudeEll = gnss.Opt[float32]{}
	}
	return p
}

func fixStatus(st *epochState, horizontal, rmcValid bool) gnss.FixStatus {
	none := gnss.FixStatusNo
	if st.timed {
		none = gnss.FixStatusTime
	}
	switch {
	case st.gsaSeen:
		switch st.gsaFix {
		case "3":
			return gnss.FixStatus3D
		case "2":
			return gnss.FixStatus2D
		}
		return none
	case st.gga != nil && st.gga.FixQuality != qualityInvalid:
		return gnss.FixStatus3D
	case horizontal && (rmcValid || st.gll != nil):
		return gnss.FixStatus2D
	}
	return none
}

func qualityFixType(q string) gnss.FixType {
	switch q {
	case qualityGPS, qualityPPS:
		return gnss.FixTypeSingleFrequency
	case qualityDGPS:
		return gnss.FixTypeDGNSS
	case qualityRTK:
		return gnss.FixTypeRTKFixed
	case qualityFRTK:
		return gnss.FixTypeRTKFloat
	case qualityEstimated:
		return gnss.FixTypeDeadReckoning
	case qualityManual:
		return gnss.FixTypeManual
	case qualitySimulated:
		return gnss.FixTypeSimulatorMode
	}
	return 0
}

// modeFixType maps the RMC positioning mode indicator (NMEA 2.3+).
func modeFixType(mode string) gnss.FixType {
	switch mode {
	case "A":
		return gnss.FixTypeSingleFrequency
	case "D":
		return gnss.FixTypeDGNSS
	case "R":
		return gnss.FixTypeRTKFixed
	case "F":
		return gnss.FixTypeRTKFloat
	case "E":
		return gnss.FixTypeDeadReckoning
	case "M":
		return gnss.FixTypeManual
	case "S":
		return gnss.FixTypeSimulatorMode
	}
	return 0
}

func present(fields []string, i int) bool {
	return i < len(fields) && fields[i] != ""
}

func nmeaYear(yy int) int {
	if yy >= 100 {
		return yy
	}
	if yy < 80 {
		return 2000 + yy
	}
	return 1900 + yy
}
