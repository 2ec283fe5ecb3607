// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes producer and subscriber health as Prometheus
// series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// Metrics owns its registry so several tools (and tests) in one process
// do not collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	Epochs              prometheus.Counter
	InvalidRecords      *prometheus.CounterVec
	ConsistencyWarnings prometheus.Counter
	PublishErrors       *prometheus.CounterVec
	DecodeErrors        *prometheus.CounterVec
	Received            *prometheus.CounterVec

	FixStatus         prometheus.Gauge
	UsedSatellites    prometheus.Gauge
	TrackedSatellites prometheus.Gauge
	VisibleSatellites prometheus.Gauge
	HDOP              prometheus.Gauge
	LastFix           prometheus.Gauge
}

func New(component string) *Metrics {
	labels := prometheus.Labels{"component": component}
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gnss_epochs_total",
			Help:        "Epochs read from the GNSS source.",
			ConstLabels: labels,
		}),
		InvalidRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gnss_invalid_records_total",
			Help:        "Records dropped because a valid field was out of range.",
			ConstLabels: labels,
		}, []string{"kind"}),
		ConsistencyWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gnss_consistency_warnings_total",
			Help:        "Positions published with cross-field inconsistencies.",
			ConstLabels: labels,
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gnss_publish_errors_total",
			Help:        "Failed MQTT publishes.",
			ConstLabels: labels,
		}, []string{"kind"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gnss_decode_errors_total",
			Help:        "Undecodable MQTT payloads.",
			ConstLabels: labels,
		}, []string{"topic"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gnss_received_total",
			Help:        "Records received from the bus.",
			ConstLabels: labels,
		}, []string{"kind"}),
		FixStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gnss_fix_status",
			Help:        "Last fix status: 0 no fix, 1 time only, 2 2D, 3 3D.",
			ConstLabels: labels,
		}),
		UsedSatellites: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gnss_used_satellites",
			Help:        "Satellites used in the last fix.",
			ConstLabels: labels,
		}),
		TrackedSatellites: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gnss_tracked_satellites",
			Help:        "Satellites tracked in the last epoch.",
			ConstLabels: labels,
		}),
		VisibleSatellites: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gnss_visible_satellites",
			Help:        "Satellites visible in the last epoch.",
			ConstLabels: labels,
		}),
		HDOP: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gnss_hdop",
			Help:        "Horizontal dilution of precision of the last fix.",
			ConstLabels: labels,
		}),
		LastFix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gnss_last_fix_timestamp_ms",
			Help:        "Timestamp of the last position with a horizontal fix.",
			ConstLabels: labels,
		}),
	}
	m.reg.MustRegister(
		m.Epochs, m.InvalidRecords, m.ConsistencyWarnings, m.PublishErrors,
		m.DecodeErrors, m.Received,
		m.FixStatus, m.UsedSatellites, m.TrackedSatellites, m.VisibleSatellites,
		m.HDOP, m.LastFix,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePosition updates the gauges from the fields that are valid;
// gauges of invalid fields keep their previous value.
func (m *Metrics) ObservePosition(p gnss.Position) {
	if v, ok := p.FixStatus.Get(); ok {
		m.FixStatus.Set(float64(v))
	}
	if v, ok := p.UsedSatellites.Get(); ok {
		m.UsedSatellites.Set(float64(v))
	}
	if v, ok := p.TrackedSatellites.Get(); ok {
		m.TrackedSatellites.Set(float64(v))
	}
	if v, ok := p.VisibleSatellites.Get(); ok {
		m.VisibleSatellites.Set(float64(v))
	}
	if v, ok := p.HDOP.Get(); ok {
		m.HDOP.Set(float64(v))
	}
	if p.HasHorizontal() {
		m.LastFix.Set(float64(p.Timestamp))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
