// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/device/mqttdev"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

const mqttConnectTimeout = 5 * time.Second

// connectMQTT connects a client with a unique id derived from clientID.
func connectMQTT(broker, clientID string, logger *zap.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt: connection lost", zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	logger.Info("mqtt: connected", zap.String("broker", broker))
	return client, nil
}

// Telemetry publishes snapshots to one topic, at most once per interval.
// Publish tokens are not waited on, so a stalled broker never holds up
// the frame loop.
type Telemetry struct {
	pub      mqttdev.Publisher
	topic    string
	interval time.Duration
	logger   *zap.Logger

	last time.Time
	sent uint64
}

// NewTelemetry publishes through pub. An interval of 0 publishes every
// snapshot.
func NewTelemetry(pub mqttdev.Publisher, topic string, interval time.Duration, logger *zap.Logger) *Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telemetry{pub: pub, topic: topic, interval: interval, logger: logger}
}

// Offer publishes snap if the interval has elapsed since the last publish.
// Safe on a nil *Telemetry.
func (t *Telemetry) Offer(snap tracking.Snapshot) {
	if t == nil {
		return
	}
	if !t.last.IsZero() && snap.Time.Sub(t.last) < t.interval {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		t.logger.Warn("telemetry: marshal error", zap.Error(err))
		return
	}
	t.pub.Publish(t.topic, 0, false, payload)
	t.last = snap.Time
	t.sent++
}

// Sent counts published snapshots.
func (t *Telemetry) Sent() uint64 {
	if t == nil {
		return 0
	}
	return t.sent
}
