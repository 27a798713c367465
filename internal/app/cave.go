// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires configuration, devices, the frame loop and the display
// hosts into the runnable tools under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/cave_tracker/internal/command"
	"github.com/relabs-tech/cave_tracker/internal/config"
	"github.com/relabs-tech/cave_tracker/internal/device"
	"github.com/relabs-tech/cave_tracker/internal/device/mqttdev"
	"github.com/relabs-tech/cave_tracker/internal/device/serialdev"
	"github.com/relabs-tech/cave_tracker/internal/device/simdev"
	"github.com/relabs-tech/cave_tracker/internal/display"
	"github.com/relabs-tech/cave_tracker/internal/display/window"
	"github.com/relabs-tech/cave_tracker/internal/frame"
	"github.com/relabs-tech/cave_tracker/internal/render"
	"github.com/relabs-tech/cave_tracker/internal/scene"
	"github.com/relabs-tech/cave_tracker/internal/tracking"
	"github.com/relabs-tech/cave_tracker/internal/units"
)

const simInterval = 10 * time.Millisecond

// Options select what RunCave loads and how it displays.
type Options struct {
	ConfigPath string
	ScenePath  string // empty loads the demo scene

	Headless bool
	Hz       int
	Ticks    uint64
	Snapshot string

	Stdin  io.Reader // keys in headless mode, may be nil
	Stdout io.Writer
	Logger *zap.Logger
}

// Cave is one running application: the state every frame works on, and
// the display.App the hosts drive.
type Cave struct {
	cfg     *config.Config
	state   *tracking.State
	session *device.Session
	manager *render.Manager
	loop    *frame.Synchronizer
	interp  *command.Interpreter
	canvas  *display.Canvas

	latest    *tracking.Latest
	status    *StatusServer
	telemetry *Telemetry
	now       func() time.Time

	release func()
}

var _ display.App = (*Cave)(nil)

// Key hands one key to the command interpreter.
func (c *Cave) Key(k rune) error {
	return c.interp.Key(k)
}

// Idle runs one frame cycle and publishes the resulting snapshot.
func (c *Cave) Idle() {
	c.loop.Step()

	snap := c.state.Snapshot()
	snap.Frame = c.manager.Frames()
	snap.Time = c.now()
	snap.Translation = c.manager.Translation()
	c.latest.Store(snap)
	if c.status != nil {
		c.status.Broadcast(snap)
	}
	c.telemetry.Offer(snap)
}

// Close releases the device session and the scene manager. It is safe to
// call more than once.
func (c *Cave) Close() {
	c.release()
}

// Latest returns the snapshot store read by other goroutines.
func (c *Cave) Latest() *tracking.Latest {
	return c.latest
}

// State returns the pose state. Only the frame goroutine may use it.
func (c *Cave) State() *tracking.State {
	return c.state
}

// Manager returns the scene manager.
func (c *Cave) Manager() *render.Manager {
	return c.manager
}

// newCave builds the frame loop around an already open connector.
func newCave(cfg *config.Config, root *scene.Node, conn device.Connector, out io.Writer, logger *zap.Logger) *Cave {
	c := &Cave{
		cfg:    cfg,
		state:  tracking.NewState(),
		canvas: display.NewCanvas(cfg.WindowWidth, cfg.WindowHeight),
		latest: &tracking.Latest{},
		now:    time.Now,
	}

	c.manager = render.NewManager(cfg, c.canvas, logger.Named("render"))
	c.manager.SetRoot(root)
	c.manager.ShowAll()

	c.release = sync.OnceFunc(func() {
		if err := c.session.Close(); err != nil {
			logger.Warn("cave: device close error", zap.Error(err))
		}
		c.manager.Close()
	})

	c.interp = command.New(c.state, c.manager, cfg, command.DefaultBounds, out, c.release, logger.Named("command"))
	receiver := tracking.NewReceiver(c.state, units.NewConverter(cfg.Units, cfg.RenderUnits), c.interp.Dump)
	sensors := device.Sensors{Head: cfg.SensorIDHead, Wand: cfg.SensorIDController}
	c.session = device.NewSession(cfg.DeviceName, conn, sensors, receiver, logger.Named("device"))
	c.loop = frame.New(c.session, c.state, c.manager, cfg.NavigationSpeed)
	return c
}

// connector returns the transport selected by cfg, plus a background job
// for transports that generate their own samples.
func connector(cfg *config.Config, logger *zap.Logger) (device.Connector, func(context.Context) error) {
	switch cfg.DeviceTransport {
	case config.TransportSerial:
		return serialdev.New(serialdev.Options{
			PortName:   cfg.SerialPort,
			BaudRate:   cfg.SerialBaudRate,
			QueueLimit: cfg.DeviceQueueLimit,
			Logger:     logger.Named("serial"),
		}), nil
	case config.TransportSim:
		sim := simdev.New(simdev.Options{QueueLimit: cfg.DeviceQueueLimit, Logger: logger.Named("sim")})
		motion := simdev.DefaultMotion()
		motion.HeadSensor, motion.WandSensor = cfg.SensorIDHead, cfg.SensorIDController
		return sim, func(ctx context.Context) error {
			return sim.Run(ctx, motion, simInterval)
		}
	default:
		return mqttdev.New(mqttdev.Options{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QueueLimit:  cfg.DeviceQueueLimit,
			Logger:      logger.Named("mqtt"),
		}), nil
	}
}

// telemetryFor connects the pose publisher when a broker is known. A failed
// connection disables telemetry. brokerErr is the device transport's own
// connect failure; the same broker is not dialed again.
func telemetryFor(cfg *config.Config, brokerErr error, logger *zap.Logger) (*Telemetry, func()) {
	if cfg.TopicPose == "" {
		return nil, func() {}
	}
	if brokerErr != nil {
		logger.Warn("telemetry: disabled, broker unreachable", zap.Error(brokerErr))
		return nil, func() {}
	}
	if cfg.DeviceTransport != config.TransportMQTT && cfg.MQTTBroker == "" {
		return nil, func() {}
	}
	addr, err := device.ParseAddress(cfg.DeviceName)
	if err != nil {
		return nil, func() {}
	}
	broker := mqttdev.New(mqttdev.Options{Broker: cfg.MQTTBroker}).BrokerFor(addr)
	client, err := connectMQTT(broker, cfg.MQTTClientID+"-telemetry", logger)
	if err != nil {
		logger.Warn("telemetry: disabled", zap.Error(err))
		return nil, func() {}
	}
	interval := time.Duration(cfg.TelemetryInterval) * time.Millisecond
	return NewTelemetry(client, cfg.TopicPose, interval, logger), func() { client.Disconnect(250) }
}

// loadScene prints the loading line so the user sees which file failed.
func loadScene(path string, out io.Writer) (*scene.Node, error) {
	if path == "" {
		return scene.Demo(), nil
	}
	fmt.Fprintf(out, "Loading scene file '%s'\n", path)
	root, err := scene.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load scene file %s: %w", path, err)
	}
	return root, nil
}

// RunCave loads configuration and scene, opens the tracking device and runs
// the frame loop until quit, ctx cancellation or the tick limit. Errors
// returned before the loop starts are fatal startup errors.
func RunCave(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("could not load config file %s: %w", opts.ConfigPath, err)
	}
	cfg.Print(out)

	root, err := loadScene(opts.ScenePath, out)
	if err != nil {
		return err
	}

	var status *StatusServer
	latest := &tracking.Latest{}
	if cfg.WebServerPort > 0 {
		status = NewStatusServer(latest, logger.Named("web"))
		if err := status.Listen(fmt.Sprintf(":%d", cfg.WebServerPort)); err != nil {
			return fmt.Errorf("Failed to start servers: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if status != nil {
		g.Go(func() error { return status.Serve(gctx) })
	}

	conn, job := connector(cfg, logger)
	cave := newCave(cfg, root, conn, out, logger)
	defer cave.Close()
	cave.latest = latest
	cave.status = status
	if job != nil {
		g.Go(func() error { return job(gctx) })
	}

	var brokerErr error
	if mc, ok := conn.(*mqttdev.Connector); ok {
		brokerErr = mc.ConnectErr()
	}
	telemetry, disconnect := telemetryFor(cfg, brokerErr, logger.Named("telemetry"))
	defer disconnect()
	cave.telemetry = telemetry

	logger.Info("cave: frame loop starting",
		zap.String("device", cfg.DeviceName),
		zap.String("transport", string(cfg.DeviceTransport)),
		zap.Bool("headless", opts.Headless))

	var hostErr error
	if opts.Headless {
		var keys <-chan rune
		if opts.Stdin != nil {
			keys = display.ReadKeys(opts.Stdin)
		}
		hostErr = display.RunHeadless(gctx, cave, cave.canvas, keys, display.HeadlessConfig{
			Hz:       opts.Hz,
			Ticks:    opts.Ticks,
			Snapshot: opts.Snapshot,
		})
	} else {
		hostErr = window.Run(cave, cave.canvas, window.Config{
			Title:  "CAVE " + cfg.DeviceName,
			Width:  cfg.WindowWidth,
			Height: cfg.WindowHeight,
			Resize: cave.manager.Resize,
			Done:   gctx.Done(),
		})
	}
	if errors.Is(hostErr, command.ErrQuit) || errors.Is(hostErr, context.Canceled) {
		hostErr = nil
	}

	cave.Close()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		hostErr = errors.Join(hostErr, err)
	}
	logger.Info("cave: stopped", zap.Uint64("frames", cave.manager.Frames()))
	return hostErr
}
