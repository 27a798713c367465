// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqttdev

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

// Channel kinds, used as the last topic level.
const (
	KindTracker = "tracker"
	KindButton  = "button"
	KindAnalog  = "analog"
)

// Topic returns "<prefix>/<device>/<kind>".
func Topic(prefix, deviceName, kind string) string {
	if prefix == "" {
		return deviceName + "/" + kind
	}
	return prefix + "/" + deviceName + "/" + kind
}

func decodeTracker(payload []byte) (device.TrackerSample, error) {
	var s device.TrackerSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return s, fmt.Errorf("tracker payload: %w", err)
	}
	if s.Sensor < 0 {
		return s, fmt.Errorf("tracker payload: negative sensor %d", s.Sensor)
	}
	return s, nil
}

func decodeButton(payload []byte) (device.ButtonSample, error) {
	var s device.ButtonSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return s, fmt.Errorf("button payload: %w", err)
	}
	return s, nil
}

func decodeAnalog(payload []byte) (device.AnalogSample, error) {
	var s device.AnalogSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return s, fmt.Errorf("analog payload: %w", err)
	}
	return s, nil
}

// Publisher is the slice of mqtt.Client needed to send messages.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// SampleWriter publishes device samples for one device, the way a tracking
// server bridge would.
type SampleWriter struct {
	pub    Publisher
	prefix string
	device string
}

// NewSampleWriter writes to the topics of deviceName under prefix.
func NewSampleWriter(pub Publisher, prefix, deviceName string) *SampleWriter {
	return &SampleWriter{pub: pub, prefix: prefix, device: deviceName}
}

func (w *SampleWriter) publish(kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", kind, err)
	}
	token := w.pub.Publish(Topic(w.prefix, w.device, kind), 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("%s publish: %w", kind, token.Error())
	}
	return nil
}

func (w *SampleWriter) Tracker(s device.TrackerSample) error { return w.publish(KindTracker, s) }
func (w *SampleWriter) Button(s device.ButtonSample) error   { return w.publish(KindButton, s) }
func (w *SampleWriter) Analog(s device.AnalogSample) error   { return w.publish(KindAnalog, s) }
