// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

func TestObservePosition(t *testing.T) {
	m := New("producer")
	m.ObservePosition(gnss.Position{
		Timestamp:      1000,
		Latitude:       gnss.Some(1.0),
		Longitude:      gnss.Some(2.0),
		FixStatus:      gnss.Some(gnss.FixStatus3D),
		UsedSatellites: gnss.Some(uint16(9)),
		HDOP:           gnss.Some(float32(0.75)),
	})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FixStatus))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.UsedSatellites))
	assert.Equal(t, 0.75, testutil.ToFloat64(m.HDOP))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.LastFix))

	// invalid fields leave the gauges alone
	m.ObservePosition(gnss.Position{Timestamp: 2000, FixStatus: gnss.Some(gnss.FixStatusNo)})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FixStatus))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.UsedSatellites))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.LastFix))
}

func TestHandler(t *testing.T) {
	m := New("web")
	m.Epochs.Inc()
	m.DecodeErrors.WithLabelValues("gnss/position").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gnss_epochs_total{component="web"} 1`)
	assert.Contains(t, string(body), `gnss_decode_errors_total{component="web",topic="gnss/position"} 1`)
}
