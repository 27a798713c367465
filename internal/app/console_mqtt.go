// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/config"
	"github.com/relabs-tech/cave_tracker/internal/device"
	"github.com/relabs-tech/cave_tracker/internal/device/mqttdev"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

// ConsoleOptions configure RunConsoleMQTT.
type ConsoleOptions struct {
	ConfigPath string
	Out        io.Writer
	Logger     *zap.Logger
}

// printSnapshot writes one telemetry message in the diagnostic dump format.
func printSnapshot(out io.Writer, mu *sync.Mutex, payload []byte) error {
	var snap tracking.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("pose unmarshal: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "[FRAME %d]\n", snap.Frame)
	snap.State().Print(out)
	return nil
}

// RunConsoleMQTT prints the pose telemetry of a running cave until ctx is
// done.
func RunConsoleMQTT(ctx context.Context, opts ConsoleOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("could not load config file %s: %w", opts.ConfigPath, err)
	}
	addr, err := device.ParseAddress(cfg.DeviceName)
	if err != nil {
		return err
	}
	broker := mqttdev.New(mqttdev.Options{Broker: cfg.MQTTBroker}).BrokerFor(addr)

	client, err := connectMQTT(broker, cfg.MQTTClientID+"-console", logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	var mu sync.Mutex
	token := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := printSnapshot(opts.Out, &mu, msg.Payload()); err != nil {
			logger.Warn("console: dropping message", zap.Error(err))
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Info("console: subscribed", zap.String("topic", cfg.TopicPose))

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
