// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/gnss_positioning/internal/gnss"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string
	MQTTClientIDRecorder string

	// Topics
	TopicGNSSPosition   string
	TopicGNSSTime       string
	TopicGNSSSatellites string

	// Payload encoding on the bus: "json" or "binary"
	PayloadFormat string

	// GNSS source: "serial" (NMEA receiver) or "simulator"
	GNSSSource       string
	GPSSerialPort    string
	GPSBaudRate      int
	ActivatedSystems gnss.System
	// Leap seconds reported with each time sample; -1 when unknown.
	LeapSeconds    int
	SimulatorRoute string

	// Web Server
	WebServerPort    int
	MetricsPort      int // 0 disables the producer metrics endpoint
	TrackHistorySize int

	// Display
	DisplayUpdateInterval int    // milliseconds
	DisplayContent        string // "position", "satellites" or "time"

	// Recorder
	RecorderLogPath string
	RecorderDBDSN   string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex; write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config with the values used when a key is absent.
func defaults() *Config {
	return &Config{
		MQTTClientIDProducer:  "gnss-producer",
		MQTTClientIDConsole:   "gnss-console",
		MQTTClientIDWeb:       "gnss-web",
		MQTTClientIDDisplay:   "gnss-display",
		MQTTClientIDRecorder:  "gnss-recorder",
		TopicGNSSPosition:     "gnss/position",
		TopicGNSSTime:         "gnss/time",
		TopicGNSSSatellites:   "gnss/satellites",
		PayloadFormat:         "json",
		GNSSSource:            "serial",
		GPSBaudRate:           9600,
		ActivatedSystems:      gnss.SystemGPS,
		LeapSeconds:           -1,
		WebServerPort:         8080,
		TrackHistorySize:      600,
		DisplayUpdateInterval: 500,
		DisplayContent:        "position",
	}
}

// Load reads the KEY=VALUE configuration file and returns a Config struct.
// Lines starting with '#' are comments.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromMap(values)
}

// FromMap builds a Config from already parsed key/value pairs.
func FromMap(values map[string]string) (*Config, error) {
	cfg := defaults()

	// apply in key order so errors are reported deterministically
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config key %s: %w", key, err)
		}
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_RECORDER":
		c.MQTTClientIDRecorder = value

	// Topics
	case "TOPIC_GNSS_POSITION":
		c.TopicGNSSPosition = value
	case "TOPIC_GNSS_TIME":
		c.TopicGNSSTime = value
	case "TOPIC_GNSS_SATELLITES":
		c.TopicGNSSSatellites = value

	case "PAYLOAD_FORMAT":
		switch value {
		case "json", "binary":
			c.PayloadFormat = value
		default:
			return fmt.Errorf("PAYLOAD_FORMAT must be json or binary, got %q", value)
		}

	// GNSS
	case "GNSS_SOURCE":
		switch value {
		case "serial", "simulator":
			c.GNSSSource = value
		default:
			return fmt.Errorf("GNSS_SOURCE must be serial or simulator, got %q", value)
		}
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", rate)
		}
		c.GPSBaudRate = rate
	case "GNSS_ACTIVATED_SYSTEMS":
		sys, err := gnss.ParseSystems(value)
		if err != nil {
			return err
		}
		c.ActivatedSystems = sys
	case "GNSS_LEAP_SECONDS":
		leap, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GNSS_LEAP_SECONDS %q: %w", value, err)
		}
		if leap < -1 || leap > 127 {
			return fmt.Errorf("GNSS_LEAP_SECONDS must be -1 (unknown) or 0-127, got %d", leap)
		}
		c.LeapSeconds = leap
	case "SIMULATOR_ROUTE":
		c.SimulatorRoute = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := parsePort(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT: %w", err)
		}
		c.WebServerPort = port
	case "METRICS_PORT":
		port, err := parsePort(value)
		if err != nil {
			return fmt.Errorf("invalid METRICS_PORT: %w", err)
		}
		c.MetricsPort = port
	case "TRACK_HISTORY_SIZE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TRACK_HISTORY_SIZE %q: %w", value, err)
		}
		if n < 2 {
			return fmt.Errorf("TRACK_HISTORY_SIZE must be at least 2, got %d", n)
		}
		c.TrackHistorySize = n

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_CONTENT":
		switch value {
		case "position", "satellites", "time":
			c.DisplayContent = value
		default:
			return fmt.Errorf("DISPLAY_CONTENT must be position, satellites or time, got %q", value)
		}

	// Recorder
	case "RECORDER_LOG_PATH":
		c.RecorderLogPath = value
	case "RECORDER_DB_DSN":
		c.RecorderDBDSN = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port must be 0-65535, got %d", port)
	}
	return port, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.GNSSSource == "serial" && c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required when GNSS_SOURCE=serial")
	}
	if c.GNSSSource == "simulator" && c.SimulatorRoute == "" {
		return fmt.Errorf("SIMULATOR_ROUTE is required when GNSS_SOURCE=simulator")
	}
	if c.ActivatedSystems == 0 {
		return fmt.Errorf("GNSS_ACTIVATED_SYSTEMS must name at least one system")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
