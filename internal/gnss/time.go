// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrOutOfRange wraps every range violation reported by Validate.
var ErrOutOfRange = errors.New("out of range")

func rangeErr(field string, v any) error {
	return fmt.Errorf("%s %v: %w", field, v, ErrOutOfRange)
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Date is the date part of a Time sample. Month counts from 0 (January)
// to 11, as in C struct tm; Day counts from 1.
type Date struct {
	Year  uint16 `json:"year"`
	Month uint8  `json:"month"`
	Day   uint8  `json:"day"`
}

// Clock is the time-of-day part of a Time sample. Second is 60 only
// during a leap second.
type Clock struct {
	Hour        uint8  `json:"hour"`
	Minute      uint8  `json:"minute"`
	Second      uint8  `json:"second"`
	Millisecond uint16 `json:"ms"`
}

// Time is one UTC (or GPS) date/time sample taken at Timestamp.
type Time struct {
	// Timestamp of acquisition in ms. All records of one system share
	// the same time source.
	Timestamp   uint64         `json:"timestamp"`
	Date        Opt[Date]      `json:"date,omitzero"`
	Clock       Opt[Clock]     `json:"clock,omitzero"`
	Scale       Opt[TimeScale] `json:"scale,omitzero"`
	LeapSeconds Opt[int8]      `json:"leap_seconds,omitzero"` // GPS minus UTC, 17 since 2015-07-01
}

func (d Date) validate() error {
	var errs []error
	if d.Month > 11 {
		errs = append(errs, rangeErr("month", d.Month))
	}
	if d.Day < 1 || d.Day > 31 {
		errs = append(errs, rangeErr("day", d.Day))
	}
	return errors.Join(errs...)
}

func (c Clock) validate() error {
	var errs []error
	if c.Hour > 23 {
		errs = append(errs, rangeErr("hour", c.Hour))
	}
	if c.Minute > 59 {
		errs = append(errs, rangeErr("minute", c.Minute))
	}
	if c.Second > 60 {
		errs = append(errs, rangeErr("second", c.Second))
	}
	if c.Millisecond > 999 {
		errs = append(errs, rangeErr("ms", c.Millisecond))
	}
	return errors.Join(errs...)
}

// Validate checks the documented ranges of every valid field.
func (t Time) Validate() error {
	var errs []error
	if d, ok := t.Date.Get(); ok {
		errs = append(errs, d.validate())
	}
	if c, ok := t.Clock.Get(); ok {
		errs = append(errs, c.validate())
	}
	if s, ok := t.Scale.Get(); ok && !s.Valid() {
		errs = append(errs, rangeErr("scale", uint32(s)))
	}
	return errors.Join(errs...)
}

// Validity returns the bits a producer emits for the populated fields.
func (t Time) Validity() TimeValidity {
	var v TimeValidity
	if t.Clock.Valid() {
		v |= TimeClockValid
	}
	if t.Date.Valid() {
		v |= TimeDateValid
	}
	if t.Scale.Valid() {
		v |= TimeScaleValid
	}
	if t.LeapSeconds.Valid() {
		v |= TimeLeapSecValid
	}
	return v
}

// UTC converts the sample to a time.Time when both date and clock are
// valid. A leap second (second 60) normalises to the next minute.
func (t Time) UTC() (time.Time, bool) {
	d, okDate := t.Date.Get()
	c, okClock := t.Clock.Get()
	if !okDate || !okClock {
		return time.Time{}, false
	}
	return time.Date(int(d.Year), time.Month(d.Month)+1, int(d.Day),
		int(c.Hour), int(c.Minute), int(c.Second), int(c.Millisecond)*int(time.Millisecond),
		time.UTC), true
}

// TimeFromUTC builds a fully dated UTC sample from a time.Time.
func TimeFromUTC(timestamp uint64, u time.Time) Time {
	u = u.UTC()
	return Time{
		Timestamp: timestamp,
		Date: Some(Date{
			Year:  uint16(u.Year()),
			Month: uint8(u.Month() - 1),
			Day:   uint8(u.Day()),
		}),
		Clock: Some(Clock{
			Hour:        uint8(u.Hour()),
			Minute:      uint8(u.Minute()),
			Second:      uint8(u.Second()),
			Millisecond: uint16(u.Nanosecond() / int(time.Millisecond)),
		}),
		Scale: Some(TimeScaleUTC),
	}
}
