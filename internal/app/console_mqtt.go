// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"strings"

	"github.com/relabs-tech/gnss_positioning/internal/bus"
	"github.com/relabs-tech/gnss_positioning/internal/config"
	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

func RunConsoleMQTT() error {
	cfg := config.Get()

	client, format, err := connect(cfg, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	sub := bus.NewSubscriber(client, topics(cfg), format)
	sub.OnError = func(topic string, err error) {
		log.Printf("console: %s decode error: %v", topic, err)
	}

	if err := sub.OnTime(func(t gnss.Time) { fmt.Println(timeLine(t)) }); err != nil {
		return err
	}
	if err := sub.OnPosition(func(p gnss.Position) { fmt.Println(positionLine(p)) }); err != nil {
		return err
	}
	if err := sub.OnSatellites(func(sats []gnss.SatelliteDetail) {
		for _, line := range satelliteLines(sats) {
			fmt.Println(line)
		}
	}); err != nil {
		return err
	}

	waitForSignal()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func timeLine(t gnss.Time) string {
	date, clock := invalid+"-"+invalid+"-"+invalid, invalid+":"+invalid+":"+invalid
	if d, ok := t.Date.Get(); ok {
		date = fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month)+1, d.Day)
	}
	if c, ok := t.Clock.Get(); ok {
		clock = fmt.Sprintf("%02d:%02d:%02d.%03d", c.Hour, c.Minute, c.Second, c.Millisecond)
	}
	return fmt.Sprintf("[TIME] %s %s scale=%s leap=%s",
		date, clock, fmtOpt(t.Scale, "%s", 3), fmtOpt(t.LeapSeconds, "%d", 2))
}

func positionLine(p gnss.Position) string {
	return fmt.Sprintf(
		"[POS ] fix=%s lat=%s lon=%s alt=%sm speed=%sm/s hdg=%s hdop=%s sats=%s/%s/%s",
		fmtOpt(p.FixStatus, "%s", 2),
		fmtOpt(p.Latitude, "%10.6f", 10),
		fmtOpt(p.Longitude, "%11.6f", 11),
		fmtOpt(p.AltitudeMSL, "%7.1f", 7),
		fmtOpt(p.HSpeed, "%5.1f", 5),
		fmtOpt(p.Heading, "%5.1f", 5),
		fmtOpt(p.HDOP, "%4.1f", 4),
		fmtOpt(p.UsedSatellites, "%2d", 2),
		fmtOpt(p.TrackedSatellites, "%2d", 2),
		fmtOpt(p.VisibleSatellites, "%2d", 2),
	)
}

func satelliteLines(sats []gnss.SatelliteDetail) []string {
	lines := []string{fmt.Sprintf("[SATS] %d in view", len(sats))}
	for _, s := range sats {
		used := " "
		if s.Used.Or(false) {
			used = "*"
		}
		name := invalid
		if sys, ok := s.System.Get(); ok {
			name = strings.TrimPrefix(sys.String(), "SBAS_")
		}
		lines = append(lines, fmt.Sprintf("  %s%-8s %s el=%s az=%s cno=%s",
			used, name,
			fmtOpt(s.ID, "%3d", 3),
			fmtOpt(s.Elevation, "%2d", 2),
			fmtOpt(s.Azimuth, "%3d", 3),
			fmtOpt(s.CNo, "%2d", 2),
		))
	}
	return lines
}
