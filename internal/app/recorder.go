// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/gnss_positioning/internal/bus"
	"github.com/relabs-tech/gnss_positioning/internal/config"
	"github.com/relabs-tech/gnss_positioning/internal/gnss"
	"github.com/relabs-tech/gnss_positioning/internal/metrics"
	"github.com/relabs-tech/gnss_positioning/internal/repository"
	"github.com/relabs-tech/gnss_positioning/internal/wire"
)

// positionStore is the write side of the recorder database.
type positionStore interface {
	Insert(ctx context.Context, session uuid.UUID, ps ...gnss.Position) error
}

// recorder appends every received record to a wire log and, when a
// store is set, every position to the database.
type recorder struct {
	log     *wire.Writer
	store   positionStore
	session uuid.UUID
	m       *metrics.Metrics
}

func (r *recorder) record(kind string, v any) {
	r.m.Received.WithLabelValues(kind).Inc()
	if err := r.log.Write(v); err != nil {
		log.Printf("recorder: %s log write error: %v", kind, err)
		return
	}
	if err := r.log.Flush(); err != nil {
		log.Printf("recorder: log flush error: %v", err)
	}

	p, ok := v.(gnss.Position)
	if !ok || r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Insert(ctx, r.session, p); err != nil {
		log.Printf("recorder: insert error: %v", err)
	}
}

func RunRecorder() error {
	cfg := config.Get()
	if cfg.RecorderLogPath == "" {
		return fmt.Errorf("RECORDER_LOG_PATH is not set")
	}

	f, err := os.OpenFile(cfg.RecorderLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open recorder log: %w", err)
	}
	defer f.Close()

	rec := &recorder{
		log:     wire.NewWriter(f),
		session: uuid.New(),
		m:       metrics.New("recorder"),
	}
	defer rec.log.Flush()

	if cfg.RecorderDBDSN != "" {
		db, err := repository.ConnectWithRetry(cfg.RecorderDBDSN, 10, 2*time.Second)
		if err != nil {
			return err
		}
		rec.store = repository.NewPositionRepository(db)
	}
	log.Printf("recorder: session %s, logging to %s", rec.session, cfg.RecorderLogPath)

	client, format, err := connect(cfg, cfg.MQTTClientIDRecorder)
	if err != nil {
		return err
	}
	log.Printf("recorder: connected to MQTT broker at %s", cfg.MQTTBroker)

	sub := bus.NewSubscriber(client, topics(cfg), format)
	sub.OnError = func(topic string, err error) {
		rec.m.DecodeErrors.WithLabelValues(topic).Inc()
		log.Printf("recorder: %s decode error: %v", topic, err)
	}
	if err := sub.OnTime(func(t gnss.Time) { rec.record("time", t) }); err != nil {
		return err
	}
	if err := sub.OnSatellites(func(sats []gnss.SatelliteDetail) { rec.record("satellites", sats) }); err != nil {
		return err
	}
	if err := sub.OnPosition(func(p gnss.Position) { rec.record("position", p) }); err != nil {
		return err
	}

	waitForSignal()

	log.Printf("recorder: shutting down after %d records", rec.log.Frames())
	client.Disconnect(250)
	return nil
}
