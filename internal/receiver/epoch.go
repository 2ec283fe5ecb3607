// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package receiver turns a GNSS receiver output into epochs of
// position, time and satellite records.
package receiver

import (
	"context"
	"time"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// Epoch groups the records produced for one fix. All three share the
// same Timestamp.
type Epoch struct {
	Position   gnss.Position
	Time       gnss.Time
	Satellites []gnss.SatelliteDetail
}

// Source produces epochs until the context is done or the underlying
// device fails.
type Source interface {
	Next(ctx context.Context) (Epoch, error)
}

// Clock returns the link-time timestamp in ms.
type Clock func() uint64

// SystemClock reads the wall clock.
func SystemClock() uint64 {
	return uint64(time.Now().UnixMilli())
}
