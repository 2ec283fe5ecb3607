// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gnss holds the positioning data model exchanged between a GNSS
// receiver and its consumers: fix status and type, satellite systems, and
// the Time, SatelliteDetail and Position snapshot records.
//
// Records are plain values copied per epoch. Every field is an Opt, so a
// consumer cannot read a field the producer did not populate. The
// validity bitmask of the wire layout exists only in the Raw forms.
package gnss
