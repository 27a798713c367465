// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/cave_tracker/internal/units"
)

// Transport selects how device samples reach the application.
type Transport string

const (
	TransportMQTT   Transport = "mqtt"
	TransportSerial Transport = "serial"
	TransportSim    Transport = "sim"
)

// DefaultPath is used when no -f flag is given.
const DefaultPath = "config/cave_config.txt"

// Config holds all application configuration values.
type Config struct {
	// Tracking device
	DeviceName       string // name@host, e.g. "DTrack@localhost"
	DeviceTransport  Transport
	DeviceQueueLimit int

	// Units of the tracker and of the renderer
	Units       units.Unit
	RenderUnits units.Unit

	// Sensor indices on the tracker channel
	SensorIDHead       int
	SensorIDController int

	// View
	FollowHead      bool
	EyeSeparation   float64 // renderer units
	NavigationSpeed float64

	// MQTT
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	// Serial
	SerialPort     string
	SerialBaudRate uint

	// Status and telemetry
	WebServerPort     int
	TopicPose         string
	TelemetryInterval int // milliseconds

	// CAVE geometry, renderer units
	CaveWidth  float64
	CaveHeight float64
	CaveDepth  float64

	// Navigation window
	WindowWidth  int
	WindowHeight int
}

// Default returns a configuration with every optional key filled in.
func Default() *Config {
	return &Config{
		DeviceName:         "DTrack@localhost",
		DeviceTransport:    TransportMQTT,
		DeviceQueueLimit:   256,
		Units:              units.Meters,
		RenderUnits:        units.Centimeters,
		SensorIDHead:       0,
		SensorIDController: 1,
		FollowHead:         true,
		EyeSeparation:      6.0,
		NavigationSpeed:    1.0,
		MQTTClientID:       "cave-tracker",
		MQTTTopicPrefix:    "vrpn",
		SerialBaudRate:     115200,
		TopicPose:          "cave/pose",
		TelemetryInterval:  100,
		CaveWidth:          270,
		CaveHeight:         270,
		CaveDepth:          270,
		WindowWidth:        640,
		WindowHeight:       480,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Tracking device
	case "DEVICE_NAME":
		c.DeviceName = value
	case "DEVICE_TRANSPORT":
		switch t := Transport(strings.ToLower(value)); t {
		case TransportMQTT, TransportSerial, TransportSim:
			c.DeviceTransport = t
		default:
			return fmt.Errorf("DEVICE_TRANSPORT must be mqtt, serial or sim, got %q", value)
		}
	case "DEVICE_QUEUE_LIMIT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEVICE_QUEUE_LIMIT %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("DEVICE_QUEUE_LIMIT must be at least 1, got %d", n)
		}
		c.DeviceQueueLimit = n

	// Units
	case "UNITS":
		u, err := units.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid UNITS: %w", err)
		}
		c.Units = u
	case "RENDER_UNITS":
		u, err := units.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid RENDER_UNITS: %w", err)
		}
		c.RenderUnits = u

	// Sensors
	case "SENSOR_ID_HEAD":
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_ID_HEAD %q: %w", value, err)
		}
		if id < 0 {
			return fmt.Errorf("SENSOR_ID_HEAD must not be negative, got %d", id)
		}
		c.SensorIDHead = id
	case "SENSOR_ID_CONTROLLER":
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_ID_CONTROLLER %q: %w", value, err)
		}
		if id < 0 {
			return fmt.Errorf("SENSOR_ID_CONTROLLER must not be negative, got %d", id)
		}
		c.SensorIDController = id

	// View
	case "FOLLOW_HEAD":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid FOLLOW_HEAD %q: %w", value, err)
		}
		c.FollowHead = b
	case "EYE_SEPARATION":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid EYE_SEPARATION %q: %w", value, err)
		}
		if f < 0 {
			return fmt.Errorf("EYE_SEPARATION must not be negative, got %g", f)
		}
		c.EyeSeparation = f
	case "NAVIGATION_SPEED":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid NAVIGATION_SPEED %q: %w", value, err)
		}
		c.NavigationSpeed = f

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC_PREFIX":
		c.MQTTTopicPrefix = strings.Trim(value, "/")

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = uint(rate)

	// Status and telemetry
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.WebServerPort = port
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TELEMETRY_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TELEMETRY_INTERVAL %q: %w", value, err)
		}
		c.TelemetryInterval = interval

	// CAVE geometry
	case "CAVE_WIDTH", "CAVE_HEIGHT", "CAVE_DEPTH":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if f <= 0 {
			return fmt.Errorf("%s must be positive, got %g", key, f)
		}
		switch key {
		case "CAVE_WIDTH":
			c.CaveWidth = f
		case "CAVE_HEIGHT":
			c.CaveHeight = f
		default:
			c.CaveDepth = f
		}

	// Window
	case "WINDOW_WIDTH":
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WINDOW_WIDTH %q: %w", value, err)
		}
		c.WindowWidth = w
	case "WINDOW_HEIGHT":
		h, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WINDOW_HEIGHT %q: %w", value, err)
		}
		c.WindowHeight = h

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("DEVICE_NAME is required")
	}
	if c.DeviceTransport == TransportSerial && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required for the serial transport")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("WINDOW_WIDTH and WINDOW_HEIGHT must be positive")
	}
	if c.TelemetryInterval < 0 {
		return fmt.Errorf("TELEMETRY_INTERVAL must not be negative")
	}
	return nil
}

// Print writes the effective configuration in KEY=VALUE form.
func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, "DEVICE_NAME=%s\n", c.DeviceName)
	fmt.Fprintf(w, "DEVICE_TRANSPORT=%s\n", c.DeviceTransport)
	fmt.Fprintf(w, "DEVICE_QUEUE_LIMIT=%d\n", c.DeviceQueueLimit)
	fmt.Fprintf(w, "UNITS=%s\n", c.Units)
	fmt.Fprintf(w, "RENDER_UNITS=%s\n", c.RenderUnits)
	fmt.Fprintf(w, "SENSOR_ID_HEAD=%d\n", c.SensorIDHead)
	fmt.Fprintf(w, "SENSOR_ID_CONTROLLER=%d\n", c.SensorIDController)
	fmt.Fprintf(w, "FOLLOW_HEAD=%t\n", c.FollowHead)
	fmt.Fprintf(w, "EYE_SEPARATION=%g\n", c.EyeSeparation)
	fmt.Fprintf(w, "NAVIGATION_SPEED=%g\n", c.NavigationSpeed)
	switch c.DeviceTransport {
	case TransportMQTT:
		fmt.Fprintf(w, "MQTT_BROKER=%s\n", c.MQTTBroker)
		fmt.Fprintf(w, "MQTT_TOPIC_PREFIX=%s\n", c.MQTTTopicPrefix)
	case TransportSerial:
		fmt.Fprintf(w, "SERIAL_PORT=%s\n", c.SerialPort)
		fmt.Fprintf(w, "SERIAL_BAUD_RATE=%d\n", c.SerialBaudRate)
	}
	fmt.Fprintf(w, "WEB_SERVER_PORT=%d\n", c.WebServerPort)
	fmt.Fprintf(w, "CAVE=%gx%gx%g\n", c.CaveWidth, c.CaveHeight, c.CaveDepth)
}
