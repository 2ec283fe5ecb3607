// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleBit(v uint32) bool { return v != 0 && v&(v-1) == 0 }

func assertDistinctBits(t *testing.T, name string, bits []uint32) {
	t.Helper()
	seen := map[uint32]bool{}
	for _, b := range bits {
		assert.Truef(t, singleBit(b), "%s: 0x%08X is not a single bit", name, b)
		assert.Falsef(t, seen[b], "%s: 0x%08X repeated", name, b)
		seen[b] = true
	}
}

func TestFlagConstantsAreDistinctPowersOfTwo(t *testing.T) {
	var fix, sys, sat []uint32
	for _, f := range FixTypeFlags() {
		fix = append(fix, uint32(f))
	}
	for _, s := range Systems() {
		sys = append(sys, uint32(s))
	}
	for _, f := range SatelliteFlags() {
		sat = append(sat, uint32(f))
	}
	assert.Len(t, fix, 14)
	assert.Len(t, sys, 14)
	assertDistinctBits(t, "FixType", fix)
	assertDistinctBits(t, "System", sys)
	assertDistinctBits(t, "SatelliteFlag", sat)
}

func TestValidityBitsAreUniquePerRecord(t *testing.T) {
	var tv, sv, pv []uint32
	for _, b := range TimeValidityBits() {
		tv = append(tv, uint32(b))
	}
	for _, b := range SatelliteValidityBits() {
		sv = append(sv, uint32(b))
	}
	for _, b := range PositionValidityBits() {
		pv = append(pv, uint32(b))
	}
	assert.Len(t, tv, 4)
	assert.Len(t, sv, 8)
	assert.Len(t, pv, 23)
	assertDistinctBits(t, "TimeValidity", tv)
	assertDistinctBits(t, "SatelliteValidity", sv)
	assertDistinctBits(t, "PositionValidity", pv)
}

func TestWireBitValues(t *testing.T) {
	assert.Equal(t, uint32(0x00004000), uint32(FixTypeRTKFixed))
	assert.Equal(t, uint32(0x20000000), uint32(FixTypeSimulatorMode))
	assert.Equal(t, uint32(0x00080000), uint32(SystemSBASQZSSSAIF))
	assert.Equal(t, uint32(0x00400000), uint32(PositionCorrectionAgeValid))
	assert.Equal(t, uint32(0x00000080), uint32(SatelliteResidualValid))
	assert.Equal(t, uint32(0x00000008), uint32(TimeLeapSecValid))
	assert.Equal(t, uint32(1), uint32(TimeScaleGPS))
	assert.Equal(t, uint32(3), uint32(FixStatus3D))
}

func TestFixTypeClusters(t *testing.T) {
	f := FixTypeMultiConstellation | FixTypeRTKFixed | FixTypeDeadReckoning
	assert.Equal(t, FixTypeMultiConstellation, f.Cluster(FixClusterSignal))
	assert.Equal(t, FixTypeRTKFixed, f.Cluster(FixClusterCorrection))
	assert.Equal(t, FixTypeDeadReckoning, f.Cluster(FixClusterPropagation))
	assert.Zero(t, f.Cluster(FixClusterArtificial))

	for _, flag := range FixTypeFlags() {
		n := 0
		for _, c := range []FixType{FixClusterSignal, FixClusterImprovement, FixClusterCorrection, FixClusterPropagation, FixClusterArtificial} {
			if flag.Cluster(c) != 0 {
				n++
			}
		}
		assert.Equalf(t, 1, n, "%s must belong to exactly one cluster", flag)
	}
}

func TestFixTypeStringAndParse(t *testing.T) {
	f := FixTypeMultiConstellation | FixTypeRTKFixed
	assert.Equal(t, "MULTI_CONSTELLATION|RTK_FIXED", f.String())

	parsed, err := ParseFixType("multi_constellation|RTK_FIXED")
	require.NoError(t, err)
	assert.Equal(t, f, parsed)

	_, err = ParseFixType("RTK_WOBBLY")
	assert.Error(t, err)

	unknown := FixTypeSBAS | FixType(0x00000400)
	assert.Equal(t, FixType(0x00000400), unknown.Unknown())
	assert.Equal(t, "SBAS|0x00000400", unknown.String())
	assert.Equal(t, []FixType{FixTypeSBAS}, unknown.Flags())
	assert.Equal(t, "NONE", FixType(0).String())
}

func TestSystemHelpers(t *testing.T) {
	assert.True(t, SystemSBASEGNOS.IsSBAS())
	assert.False(t, SystemGPS.IsSBAS())
	assert.False(t, (SystemSBASWAAS | SystemSBASEGNOS).IsSBAS())
	assert.True(t, SystemBeiDouB2.Single())

	act := SystemGPS | SystemGalileo | SystemGLONASS
	assert.True(t, (SystemGPS | SystemGalileo).Subset(act))
	assert.False(t, (SystemGPS | SystemBeiDou).Subset(act))

	s, err := ParseSystems("GPS, galileo,SBAS_EGNOS")
	require.NoError(t, err)
	assert.Equal(t, SystemGPS|SystemGalileo|SystemSBASEGNOS, s)
	assert.Equal(t, "GPS|GALILEO|SBAS_EGNOS", s.String())
}

func TestMultiConstellation(t *testing.T) {
	assert.Equal(t, SystemGPS|SystemGalileo, (SystemGPS | SystemGPSL5 | SystemGalileo | SystemSBASEGNOS).Constellations())
	assert.True(t, (SystemGPS | SystemGalileo).MultiConstellation())
	// extra signals and augmentation do not count
	assert.False(t, (SystemGPS | SystemGPSL2 | SystemSBASWAAS).MultiConstellation())
	assert.False(t, SystemBeiDou.MultiConstellation())
	assert.False(t, System(0).MultiConstellation())
}

func TestFixStatusOrdering(t *testing.T) {
	assert.True(t, FixStatus3D.Implies(FixStatus2D))
	assert.True(t, FixStatus3D.Implies(FixStatusTime))
	assert.True(t, FixStatus2D.Implies(FixStatus2D))
	assert.False(t, FixStatusTime.Implies(FixStatus2D))
	assert.False(t, FixStatus(7).Implies(FixStatusNo))

	b, err := json.Marshal(FixStatus2D)
	require.NoError(t, err)
	assert.JSONEq(t, `"2D"`, string(b))

	var s FixStatus
	require.NoError(t, json.Unmarshal([]byte(`"3d"`), &s))
	assert.Equal(t, FixStatus3D, s)
	assert.Error(t, json.Unmarshal([]byte(`"4D"`), &s))
}

func TestTimeBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		date  Date
		clock Clock
		ok    bool
	}{
		{"january", Date{2024, 0, 1}, Clock{0, 0, 0, 0}, true},
		{"december", Date{2024, 11, 31}, Clock{23, 59, 59, 999}, true},
		{"leap second", Date{2016, 11, 31}, Clock{23, 59, 60, 0}, true},
		{"second 61", Date{2016, 11, 31}, Clock{23, 59, 61, 0}, false},
		{"month 12", Date{2024, 12, 1}, Clock{}, false},
		{"day 0", Date{2024, 5, 0}, Clock{}, false},
		{"hour 24", Date{2024, 5, 1}, Clock{24, 0, 0, 0}, false},
		{"ms 1000", Date{2024, 5, 1}, Clock{1, 0, 0, 1000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Time{Date: Some(tt.date), Clock: Some(tt.clock)}.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOutOfRange)
			}
		})
	}
}

func TestTimeUTC(t *testing.T) {
	ref := time.Date(2025, time.March, 9, 14, 5, 7, 250*int(time.Millisecond), time.UTC)
	tm := TimeFromUTC(42, ref)
	assert.Equal(t, uint8(2), tm.Date.Or(Date{}).Month)
	assert.Equal(t, TimeClockValid|TimeDateValid|TimeScaleValid, tm.Validity())

	got, ok := tm.UTC()
	require.True(t, ok)
	assert.True(t, ref.Equal(got))

	_, ok = Time{Clock: Some(Clock{Hour: 1})}.UTC()
	assert.False(t, ok, "no date")
}

func TestHeadingBoundaries(t *testing.T) {
	for _, h := range []float32{0, 180, 359.99} {
		assert.NoError(t, Position{Heading: Some(h)}.Validate(), "heading %v", h)
	}
	for _, h := range []float32{360, -0.5, 720} {
		assert.ErrorIs(t, Position{Heading: Some(h)}.Validate(), ErrOutOfRange, "heading %v", h)
	}
}

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		in   float64
		want float32
	}{
		{0, 0},
		{84.5, 84.5},
		{360, 0},
		{-10, 350},
		{725, 5},
		{-360, 0},
		{359.99999999, 0},
		{-1e-12, 0},
	}
	for _, tt := range tests {
		got := NormalizeHeading(tt.in)
		assert.Equal(t, tt.want, got, "heading %v", tt.in)
		assert.NoError(t, Position{Heading: Some(got)}.Validate(), "heading %v", tt.in)
	}
}

func TestSatelliteRanges(t *testing.T) {
	ok := SatelliteDetail{
		System:      Some(SystemGLONASS),
		ID:          Some(uint16(70)),
		Azimuth:     Some(uint16(359)),
		Elevation:   Some(uint16(90)),
		CNo:         Some(uint16(0)),
		PosResidual: Some(int16(-999)),
	}
	assert.NoError(t, ok.Validate())
	assert.False(t, ok.Tracking())

	bad := ok
	bad.Azimuth = Some(uint16(360))
	bad.Elevation = Some(uint16(91))
	bad.CNo = Some(uint16(100))
	bad.PosResidual = Some(int16(1000))
	bad.System = Some(SystemGPS | SystemGLONASS)
	err := bad.Validate()
	require.Error(t, err)
	for _, field := range []string{"azimuth", "elevation", "cno", "pos_residual", "system"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestSatelliteKeyUniqueWithinSystem(t *testing.T) {
	gps := SatelliteDetail{System: Some(SystemGPS), ID: Some(uint16(5))}
	gal := SatelliteDetail{System: Some(SystemGalileo), ID: Some(uint16(5))}
	k1, ok1 := gps.Key()
	k2, ok2 := gal.Key()
	require.True(t, ok1)
	require.True(t, ok2)
	assert.NotEqual(t, k1, k2)

	_, ok := SatelliteDetail{ID: Some(uint16(5))}.Key()
	assert.False(t, ok)
}

func TestOnlyHorizontalValid(t *testing.T) {
	raw := RawPosition{
		Latitude:     48.1371,
		Longitude:    11.5754,
		AltitudeMSL:  519,
		ValidityBits: PositionLatitudeValid | PositionLongitudeValid,
	}
	p, err := PositionFromRaw(raw)
	require.NoError(t, err)

	lat, err := p.Latitude.Value()
	require.NoError(t, err)
	assert.Equal(t, 48.1371, lat)
	lon, ok := p.Longitude.Get()
	assert.True(t, ok)
	assert.Equal(t, 11.5754, lon)

	_, err = p.AltitudeMSL.Value()
	assert.ErrorIs(t, err, ErrNotValid)
	assert.False(t, p.AltitudeMSL.Valid())
}

func TestFixStatusDistinguishableWithSameType(t *testing.T) {
	bits := FixTypeMultiConstellation | FixTypeRTKFixed
	p3 := Position{FixStatus: Some(FixStatus3D), FixType: Some(bits)}
	p2 := Position{FixStatus: Some(FixStatus2D), FixType: Some(bits)}
	assert.NotEqual(t, p3, p2)
	assert.NotEqual(t, p3.Raw(), p2.Raw())
	assert.Equal(t, p3.Raw().FixTypeBits, p2.Raw().FixTypeBits)

	back, err := PositionFromRaw(p3.Raw())
	require.NoError(t, err)
	assert.Equal(t, p3, back)
}

func TestPositionRawRoundTrip(t *testing.T) {
	p := Position{
		Timestamp:         1700000000123,
		Latitude:          Some(52.52),
		Longitude:         Some(13.405),
		AltitudeMSL:       Some(float32(34.5)),
		AltitudeEll:       Some(float32(78.2)),
		HSpeed:            Some(float32(13.9)),
		VSpeed:            Some(float32(-0.3)),
		Heading:           Some(float32(271.5)),
		PDOP:              Some(float32(1.5)),
		HDOP:              Some(float32(0.9)),
		VDOP:              Some(float32(1.2)),
		UsedSatellites:    Some(uint16(14)),
		TrackedSatellites: Some(uint16(18)),
		VisibleSatellites: Some(uint16(22)),
		SigmaHPosition:    Some(float32(0.02)),
		FixStatus:         Some(FixStatus3D),
		FixType:           Some(FixTypeMultiConstellation | FixTypeRTKFixed),
		ActivatedSystems:  Some(SystemGPS | SystemGalileo | SystemGLONASS),
		UsedSystems:       Some(SystemGPS | SystemGalileo),
		CorrectionAge:     Some(uint16(2)),
	}
	require.NoError(t, p.Validate())
	require.NoError(t, p.CheckConsistency())

	raw := p.Raw()
	assert.False(t, raw.ValidityBits.Has(PositionSigmaAltitudeValid))
	assert.True(t, raw.ValidityBits.Has(PositionCorrectionAgeValid))

	back, err := PositionFromRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestFromRawRejectsUndefinedValidity(t *testing.T) {
	_, err := PositionFromRaw(RawPosition{ValidityBits: 0x00800000})
	assert.ErrorIs(t, err, ErrUnknownValidity)
	_, err = TimeFromRaw(RawTime{ValidityBits: 0x10})
	assert.ErrorIs(t, err, ErrUnknownValidity)
	_, err = SatelliteDetailFromRaw(RawSatelliteDetail{ValidityBits: 0x100})
	assert.ErrorIs(t, err, ErrUnknownValidity)
}

func TestFromRawIgnoresContentOfInvalidFields(t *testing.T) {
	// out-of-range garbage is fine while its bit is unset
	tm, err := TimeFromRaw(RawTime{Month: 200, Second: 99, ValidityBits: TimeScaleValid, Scale: TimeScaleGPS})
	require.NoError(t, err)
	assert.False(t, tm.Date.Valid())
	assert.Equal(t, TimeScaleGPS, tm.Scale.Or(TimeScaleUTC))

	_, err = TimeFromRaw(RawTime{Second: 61, ValidityBits: TimeClockValid})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSatelliteRawStatusBits(t *testing.T) {
	s := SatelliteDetail{
		System: Some(SystemGPS),
		ID:     Some(uint16(12)),
		Used:   Some(true),
	}
	raw := s.Raw()
	assert.Equal(t, SatelliteUsed, raw.StatusBits)
	assert.Equal(t, SatelliteSystemValid|SatelliteIDValid|SatelliteUsedValid, raw.ValidityBits)

	back, err := SatelliteDetailFromRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, s, back)
	assert.False(t, back.EphemerisAvailable.Valid())
}

func TestCheckConsistency(t *testing.T) {
	p := Position{
		PDOP:              Some(float32(3)),
		HDOP:              Some(float32(1)),
		VDOP:              Some(float32(1)),
		UsedSatellites:    Some(uint16(9)),
		TrackedSatellites: Some(uint16(8)),
		FixStatus:         Some(FixStatus3D),
		ActivatedSystems:  Some(SystemGPS),
		UsedSystems:       Some(SystemGPS | SystemBeiDou),
	}
	assert.NoError(t, p.Validate(), "soft expectations never fail validation")
	err := p.CheckConsistency()
	require.Error(t, err)
	for _, want := range []string{"used systems", "pdop", "used satellites", "without altitude"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	err := Position{HDOP: Some(nan), Latitude: Some(91.0)}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Contains(t, err.Error(), "hdop")
	assert.Contains(t, err.Error(), "latitude")
}

func TestPositionJSONOmitsInvalidFields(t *testing.T) {
	p := Position{
		Timestamp: 7,
		Latitude:  Some(1.5),
		Longitude: Some(-2.25),
		FixStatus: Some(FixStatus2D),
		FixType:   Some(FixTypeSBAS),
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":7,"latitude":1.5,"longitude":-2.25,"fix_status":"2D","fix_type":4096}`, string(b))

	var back Position
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p, back)
	assert.False(t, back.AltitudeMSL.Valid())
}

func TestOpt(t *testing.T) {
	var o Opt[int]
	assert.True(t, o.IsZero())
	assert.Equal(t, 3, o.Or(3))
	_, err := o.Value()
	assert.ErrorIs(t, err, ErrNotValid)

	o = Some(0)
	assert.True(t, o.Valid(), "zero value can be valid")
	v, err := o.Value()
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
