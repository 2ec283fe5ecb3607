// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import "github.com/relabs-tech/gnss_positioning/internal/gnss"

// NMEA satellite numbering (NMEA 0183 4.x, u-blox extended ranges).
const (
	minPRNGPS     = 1
	maxPRNGPS     = 32
	minPRNSBAS    = 33 // SBAS PRN 120 is reported as 33
	maxPRNSBAS    = 64
	minPRNGLONASS = 65
	maxPRNGLONASS = 96
	minPRNGalGN   = 301 // Galileo under the GN talker
	maxPRNGalGN   = 336
	minPRNBdsGN   = 401 // BeiDou under the GN talker
	maxPRNBdsGN   = 437

	sbasPRNOffset = 87
)

// sbasByPRN maps SBAS satellite PRNs (120..158) to their regional system.
var sbasByPRN = map[int]gnss.System{
	120: gnss.SystemSBASEGNOS,
	121: gnss.SystemSBASEGNOS,
	123: gnss.SystemSBASEGNOS,
	124: gnss.SystemSBASEGNOS,
	126: gnss.SystemSBASEGNOS,
	136: gnss.SystemSBASEGNOS,
	131: gnss.SystemSBASWAAS,
	133: gnss.SystemSBASWAAS,
	135: gnss.SystemSBASWAAS,
	138: gnss.SystemSBASWAAS,
	129: gnss.SystemSBASMSAS,
	137: gnss.SystemSBASMSAS,
	127: gnss.SystemSBASGAGAN,
	128: gnss.SystemSBASGAGAN,
	132: gnss.SystemSBASGAGAN,
	125: gnss.SystemSBASSDCM,
	140: gnss.SystemSBASSDCM,
	141: gnss.SystemSBASSDCM,
}

// SBASSystem returns the augmentation system broadcasting on an SBAS PRN.
func SBASSystem(prn int) (gnss.System, bool) {
	if prn >= 183 && prn <= 187 {
		return gnss.SystemSBASQZSSSAIF, true
	}
	s, ok := sbasByPRN[prn]
	return s, ok
}

// SystemFor resolves the system of a satellite from the sentence talker
// and the NMEA satellite number.
func SystemFor(talker string, id int64) (gnss.System, bool) {
	if id >= minPRNSBAS && id <= maxPRNSBAS && (talker == "GP" || talker == "GN") {
		return SBASSystem(int(id) + sbasPRNOffset)
	}
	switch talker {
	case "GP":
		if id >= minPRNGPS && id <= maxPRNGPS {
			return gnss.SystemGPS, true
		}
	case "GL":
		return gnss.SystemGLONASS, true
	case "GA":
		return gnss.SystemGalileo, true
	case "GB", "BD":
		return gnss.SystemBeiDou, true
	case "GN":
		switch {
		case id >= minPRNGPS && id <= maxPRNGPS:
			return gnss.SystemGPS, true
		case id >= minPRNGLONASS && id <= maxPRNGLONASS:
			return gnss.SystemGLONASS, true
		case id >= minPRNGalGN && id <= maxPRNGalGN:
			return gnss.SystemGalileo, true
		case id >= minPRNBdsGN && id <= maxPRNBdsGN:
			return gnss.SystemBeiDou, true
		}
	}
	return 0, false
}

const sbasSystems = gnss.SystemSBASWAAS | gnss.SystemSBASEGNOS | gnss.SystemSBASMSAS |
	gnss.SystemSBASQZSSSAIF | gnss.SystemSBASSDCM | gnss.SystemSBASGAGAN
