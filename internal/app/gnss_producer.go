// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gnss_positioning/internal/bus"
	"github.com/relabs-tech/gnss_positioning/internal/config"
	"github.com/relabs-tech/gnss_positioning/internal/gnss"
	"github.com/relabs-tech/gnss_positioning/internal/metrics"
	"github.com/relabs-tech/gnss_positioning/internal/receiver"
	"github.com/relabs-tech/gnss_positioning/internal/simulator"
)

// epochPublisher is the part of bus.Publisher the producer needs.
type epochPublisher interface {
	PublishTime(gnss.Time) error
	PublishSatellites([]gnss.SatelliteDetail) error
	PublishPosition(gnss.Position) error
}

// RunGNSSProducer reads epochs from the configured source (NMEA receiver
// or simulated route) and publishes time, satellites and position on MQTT.
func RunGNSSProducer() error {
	cfg := config.Get()

	client, format, err := connect(cfg, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s (%s payloads)", cfg.MQTTBroker, format)

	src, closer, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	m := metrics.New("producer")
	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort, m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := bus.NewPublisher(client, topics(cfg), format)
	for {
		ep, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.Println("producer: shutting down")
				return nil
			}
			log.Printf("producer: source error: %v", err)
			return err
		}
		publishEpoch(pub, m, ep)
	}
}

func openSource(cfg *config.Config) (receiver.Source, io.Closer, error) {
	switch cfg.GNSSSource {
	case "simulator":
		route, err := simulator.LoadRoute(cfg.SimulatorRoute)
		if err != nil {
			return nil, nil, err
		}
		sim := simulator.New(route, nil)
		sim.Realtime = true
		log.Printf("producer: simulating route %q at %g Hz", route.Name, route.RateHz)
		return sim, sim, nil
	case "serial":
		asm := receiver.NewAssembler(cfg.ActivatedSystems, cfg.LeapSeconds, nil)
		port, err := receiver.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate, asm)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("producer: serial port opened on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)
		return port, port, nil
	}
	return nil, nil, fmt.Errorf("unknown GNSS source %q", cfg.GNSSSource)
}

func serveMetrics(port int, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Printf("producer: metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("producer: metrics server error: %v", err)
	}
}

// publishEpoch sends the records of one epoch in time, satellites,
// position order. Records failing validation are dropped and counted;
// publish failures are logged and the loop keeps going.
func publishEpoch(pub epochPublisher, m *metrics.Metrics, ep receiver.Epoch) {
	m.Epochs.Inc()

	if err := ep.Time.Validate(); err != nil {
		m.InvalidRecords.WithLabelValues("time").Inc()
		log.Printf("producer: dropping time sample: %v", err)
	} else if err := pub.PublishTime(ep.Time); err != nil {
		m.PublishErrors.WithLabelValues("time").Inc()
		log.Printf("producer: publish error: %v", err)
	}

	sats := make([]gnss.SatelliteDetail, 0, len(ep.Satellites))
	for _, s := range ep.Satellites {
		if err := s.Validate(); err != nil {
			m.InvalidRecords.WithLabelValues("satellite").Inc()
			log.Printf("producer: dropping satellite: %v", err)
			continue
		}
		sats = append(sats, s)
	}
	if err := pub.PublishSatellites(sats); err != nil {
		m.PublishErrors.WithLabelValues("satellites").Inc()
		log.Printf("producer: publish error: %v", err)
	}

	p := ep.Position
	if err := p.Validate(); err != nil {
		m.InvalidRecords.WithLabelValues("position").Inc()
		log.Printf("producer: dropping position: %v", err)
		return
	}
	if err := p.CheckConsistency(); err != nil {
		m.ConsistencyWarnings.Inc()
		log.Printf("producer: inconsistent position: %v", err)
	}
	if err := pub.PublishPosition(p); err != nil {
		m.PublishErrors.WithLabelValues("position").Inc()
		log.Printf("producer: publish error: %v", err)
		return
	}
	m.ObservePosition(p)

	log.Printf("producer: fix=%s lat=%s lon=%s alt=%s used=%s",
		fmtOpt(p.FixStatus, "%s", 2),
		fmtOpt(p.Latitude, "%.6f", 10),
		fmtOpt(p.Longitude, "%.6f", 11),
		fmtOpt(p.AltitudeMSL, "%.1f", 6),
		fmtOpt(p.UsedSatellites, "%d", 2),
	)
}
