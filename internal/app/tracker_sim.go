// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/config"
	"github.com/relabs-tech/cave_tracker/internal/device"
	"github.com/relabs-tech/cave_tracker/internal/device/mqttdev"
	"github.com/relabs-tech/cave_tracker/internal/device/simdev"
)

// SimOptions configure RunTrackerSim.
type SimOptions struct {
	ConfigPath string
	Interval   time.Duration
	// PressEvery sends a button 0 press and release this often; 0 never.
	PressEvery time.Duration
	Logger     *zap.Logger
}

type sampleWriter interface {
	Tracker(device.TrackerSample) error
	Button(device.ButtonSample) error
	Analog(device.AnalogSample) error
}

// simulate publishes motion samples each tick until ctx is done or, if
// ticks > 0, that many ticks have passed. Publish errors are logged and
// skipped.
func simulate(ctx context.Context, w sampleWriter, m simdev.Motion, interval, pressEvery time.Duration, ticks uint64, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	lastPress := start
	var n uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			head, wand, analog := m.At(now.Sub(start).Seconds())
			err := errors.Join(w.Tracker(head), w.Tracker(wand), w.Analog(analog))
			if pressEvery > 0 && now.Sub(lastPress) >= pressEvery {
				lastPress = now
				err = errors.Join(err,
					w.Button(device.ButtonSample{Button: 0, State: 1}),
					w.Button(device.ButtonSample{Button: 0, State: 0}))
				logger.Info("sim: button 0 pressed")
			}
			if err != nil {
				logger.Warn("sim: publish error", zap.Error(err))
			}
			n++
			if ticks > 0 && n >= ticks {
				return nil
			}
		}
	}
}

// RunTrackerSim publishes a simulated user to the MQTT topics of the
// configured device.
func RunTrackerSim(ctx context.Context, opts SimOptions) error {
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
	client, err := connectMQTT(broker, cfg.MQTTClientID+"-sim", logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	interval := opts.Interval
	if interval <= 0 {
		interval = simInterval
	}
	m := simdev.DefaultMotion()
	m.HeadSensor, m.WandSensor = cfg.SensorIDHead, cfg.SensorIDController
	w := mqttdev.NewSampleWriter(client, cfg.MQTTTopicPrefix, addr.Device)

	logger.Info("sim: publishing", zap.String("device", addr.Device), zap.Duration("interval", interval))
	err = simulate(ctx, w, m, interval, opts.PressEvery, 0, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
