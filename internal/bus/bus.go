// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus carries GNSS records over MQTT, one topic per record kind.
package bus

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
	"github.com/relabs-tech/gnss_positioning/internal/wire"
)

// Format selects the payload encoding.
type Format string

const (
	// FormatJSON omits invalid fields from the document.
	FormatJSON Format = "json"
	// FormatBinary sends wire frames, validity mask included.
	FormatBinary Format = "binary"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatBinary:
		return f, nil
	}
	return "", fmt.Errorf("bus: unknown payload format %q", s)
}

// Topics names the topic of each record kind.
type Topics struct {
	Position   string
	Time       string
	Satellites string
}

// Client is the part of mqtt.Client the bus uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Connect opens an MQTT session with the broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// Encode serialises a Time, Position or []SatelliteDetail. Every
// record is validated before it leaves the process.
func Encode(f Format, v any) ([]byte, error) {
	if f == FormatBinary {
		return wire.Marshal(v)
	}
	switch r := v.(type) {
	case gnss.Time:
		if err := r.Validate(); err != nil {
			return nil, err
		}
	case gnss.Position:
		if err := r.Validate(); err != nil {
			return nil, err
		}
	case []gnss.SatelliteDetail:
		for i, s := range r {
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("satellite %d: %w", i, err)
			}
		}
	default:
		return nil, fmt.Errorf("bus: cannot encode %T", v)
	}
	return json.Marshal(v)
}

func DecodePosition(f Format, payload []byte) (gnss.Position, error) {
	if f == FormatBinary {
		return wire.UnmarshalPosition(payload)
	}
	var p gnss.Position
	if err := json.Unmarshal(payload, &p); err != nil {
		return gnss.Position{}, err
	}
	return p, p.Validate()
}

func DecodeTime(f Format, payload []byte) (gnss.Time, error) {
	if f == FormatBinary {
		return wire.UnmarshalTime(payload)
	}
	var t gnss.Time
	if err := json.Unmarshal(payload, &t); err != nil {
		return gnss.Time{}, err
	}
	return t, t.Validate()
}

func DecodeSatellites(f Format, payload []byte) ([]gnss.SatelliteDetail, error) {
	if f == FormatBinary {
		return wire.UnmarshalSatellites(payload)
	}
	var sats []gnss.SatelliteDetail
	if err := json.Unmarshal(payload, &sats); err != nil {
		return nil, err
	}
	for i, s := range sats {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("satellite %d: %w", i, err)
		}
	}
	return sats, nil
}

// Publisher sends records as retained QoS 0 messages, so a subscriber
// joining late gets the latest sample at once.
type Publisher struct {
	client Client
	topics Topics
	format Format
}

func NewPublisher(client Client, topics Topics, format Format) *Publisher {
	return &Publisher{client: client, topics: topics, format: format}
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := Encode(p.format, v)
	if err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("%s: %w", topic, token.Error())
	}
	return nil
}

func (p *Publisher) PublishPosition(pos gnss.Position) error {
	return p.publish(p.topics.Position, pos)
}

func (p *Publisher) PublishTime(t gnss.Time) error {
	return p.publish(p.topics.Time, t)
}

func (p *Publisher) PublishSatellites(sats []gnss.SatelliteDetail) error {
	if sats == nil {
		sats = []gnss.SatelliteDetail{}
	}
	return p.publish(p.topics.Satellites, sats)
}

// Subscriber decodes records into typed handlers. Undecodable messages
// are reported to OnError and dropped.
type Subscriber struct {
	client Client
	topics Topics
	format Format

	// OnError defaults to logging.
	OnError func(topic string, err error)
}

func NewSubscriber(client Client, topics Topics, format Format) *Subscriber {
	return &Subscriber{
		client: client,
		topics: topics,
		format: format,
		OnError: func(topic string, err error) {
			log.Printf("bus: %s decode error: %v", topic, err)
		},
	}
}

func (s *Subscriber) subscribe(topic string, handle func(payload []byte) error) error {
	token := s.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := handle(msg.Payload()); err != nil {
			s.OnError(msg.Topic(), err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("bus: subscribed to %s", topic)
	return nil
}

func (s *Subscriber) OnPosition(fn func(gnss.Position)) error {
	return s.subscribe(s.topics.Position, func(payload []byte) error {
		p, err := DecodePosition(s.format, payload)
		if err != nil {
			return err
		}
		fn(p)
		return nil
	})
}

func (s *Subscriber) OnTime(fn func(gnss.Time)) error {
	return s.subscribe(s.topics.Time, func(payload []byte) error {
		t, err := DecodeTime(s.format, payload)
		if err != nil {
			return err
		}
		fn(t)
		return nil
	})
}

func (s *Subscriber) OnSatellites(fn func([]gnss.SatelliteDetail)) error {
	return s.subscribe(s.topics.Satellites, func(payload []byte) error {
		sats, err := DecodeSatellites(s.format, payload)
		if err != nil {
			return err
		}
		fn(sats)
		return nil
	})
}
