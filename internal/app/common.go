// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_positioning/internal/bus"
	"github.com/relabs-tech/gnss_positioning/internal/config"
	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

const invalid = "--"

func topics(cfg *config.Config) bus.Topics {
	return bus.Topics{
		Position:   cfg.TopicGNSSPosition,
		Time:       cfg.TopicGNSSTime,
		Satellites: cfg.TopicGNSSSatellites,
	}
}

// connect opens the MQTT session for one tool and returns the payload
// format shared by all of them.
func connect(cfg *config.Config, clientID string) (mqtt.Client, bus.Format, error) {
	format, err := bus.ParseFormat(cfg.PayloadFormat)
	if err != nil {
		return nil, "", err
	}
	client, err := bus.Connect(cfg.MQTTBroker, clientID)
	if err != nil {
		return nil, "", err
	}
	return client, format, nil
}

// waitForSignal blocks until Ctrl+C or SIGTERM.
func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

// fmtOpt renders a valid field with format, an invalid one as "--"
// padded to the same width.
func fmtOpt[T any](o gnss.Opt[T], format string, width int) string {
	v, ok := o.Get()
	if !ok {
		return fmt.Sprintf("%*s", width, invalid)
	}
	return fmt.Sprintf(format, v)
}
