// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqttdev receives tracker, button and analog samples from MQTT
// topics. Each device channel maps to one topic.
package mqttdev

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

const (
	defaultPort    = 1883
	connectTimeout = 5 * time.Second
	disconnectWait = 250 // milliseconds
)

// Options configure a Connector.
type Options struct {
	// Broker defaults to tcp://<device host>:1883.
	Broker      string
	ClientID    string
	TopicPrefix string
	QueueLimit  int
	Logger      *zap.Logger
	// NewClient replaces mqtt.NewClient, mainly for tests.
	NewClient func(*mqtt.ClientOptions) mqtt.Client
}

// Connector opens device channels backed by subscriptions on one shared
// MQTT client. The client connects on the first Open and disconnects when
// the last channel closes. A failed connect is not retried: later Opens
// return the same error.
type Connector struct {
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	client     mqtt.Client
	connectErr error
	subs       map[string]mqtt.MessageHandler
}

var _ device.Connector = (*Connector)(nil)

// New returns an unconnected Connector.
func New(opts Options) *Connector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NewClient == nil {
		opts.NewClient = mqtt.NewClient
	}
	return &Connector{
		opts:   opts,
		logger: logger,
		subs:   make(map[string]mqtt.MessageHandler),
	}
}

// BrokerFor returns the broker URL used for a device address.
func (c *Connector) BrokerFor(addr device.Address) string {
	if c.opts.Broker != "" {
		return c.opts.Broker
	}
	return fmt.Sprintf("tcp://%s:%d", addr.Host, defaultPort)
}

func (c *Connector) clientOptions(broker string) *mqtt.ClientOptions {
	clientID := c.opts.ClientID
	if clientID == "" {
		clientID = "cave-tracker"
	}
	// brokers drop an older session using the same id
	clientID += "-" + uuid.NewString()[:8]

	return mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.logger.Warn("mqtt: connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(c.resubscribe)
}

// connect must be called with c.mu held.
func (c *Connector) connect(addr device.Address) error {
	if c.client != nil {
		return nil
	}
	if c.connectErr != nil {
		return c.connectErr
	}
	broker := c.BrokerFor(addr)
	client := c.opts.NewClient(c.clientOptions(broker))
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.connectErr = fmt.Errorf("mqtt connect to %s: timed out", broker)
		return c.connectErr
	}
	if err := token.Error(); err != nil {
		c.connectErr = fmt.Errorf("mqtt connect to %s: %w", broker, err)
		return c.connectErr
	}
	c.client = client
	c.logger.Info("mqtt: connected", zap.String("broker", broker))
	return nil
}

// ConnectErr returns the error of the failed broker connect, if any.
func (c *Connector) ConnectErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectErr
}

// resubscribe restores subscriptions after an automatic reconnect.
func (c *Connector) resubscribe(client mqtt.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, h := range c.subs {
		client.Subscribe(topic, 0, h)
		c.logger.Info("mqtt: resubscribed", zap.String("topic", topic))
	}
}

func (c *Connector) subscribe(name, kind string, h mqtt.MessageHandler) (func() error, error) {
	addr, err := device.ParseAddress(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(addr); err != nil {
		return nil, err
	}

	topic := Topic(c.opts.TopicPrefix, addr.Device, kind)
	if _, dup := c.subs[topic]; dup {
		return nil, fmt.Errorf("mqtt: %s already open", topic)
	}
	token := c.client.Subscribe(topic, 0, h)
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt subscribe %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	c.subs[topic] = h
	c.logger.Info("mqtt: subscribed", zap.String("topic", topic))

	return func() error { return c.unsubscribe(topic) }, nil
}

func (c *Connector) unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return errors.New("mqtt: not connected")
	}
	delete(c.subs, topic)
	token := c.client.Unsubscribe(topic)
	token.WaitTimeout(connectTimeout)
	err := token.Error()

	if len(c.subs) == 0 {
		c.client.Disconnect(disconnectWait)
		c.client = nil
		c.logger.Info("mqtt: disconnected")
	}
	return err
}

func (c *Connector) OpenTracker(name string) (device.TrackerRemote, error) {
	var unsub func() error
	ch := device.NewTrackerChannel(c.channelOptions(name, &unsub))
	fn, err := c.subscribe(name, KindTracker, handler(c.logger, KindTracker, decodeTracker, ch.Push))
	if err != nil {
		return nil, err
	}
	unsub = fn
	return ch, nil
}

func (c *Connector) OpenButton(name string) (device.ButtonRemote, error) {
	var unsub func() error
	ch := device.NewButtonChannel(c.channelOptions(name, &unsub))
	fn, err := c.subscribe(name, KindButton, handler(c.logger, KindButton, decodeButton, ch.Push))
	if err != nil {
		return nil, err
	}
	unsub = fn
	return ch, nil
}

func (c *Connector) OpenAnalog(name string) (device.AnalogRemote, error) {
	var unsub func() error
	ch := device.NewAnalogChannel(c.channelOptions(name, &unsub))
	fn, err := c.subscribe(name, KindAnalog, handler(c.logger, KindAnalog, decodeAnalog, ch.Push))
	if err != nil {
		return nil, err
	}
	unsub = fn
	return ch, nil
}

// channelOptions closes through *unsub, which is set once the
// subscription exists.
func (c *Connector) channelOptions(name string, unsub *func() error) device.ChannelOptions {
	return device.ChannelOptions{
		Name:       name,
		QueueLimit: c.opts.QueueLimit,
		Logger:     c.logger,
		OnClose: func() error {
			if *unsub == nil {
				return nil
			}
			return (*unsub)()
		},
	}
}

// handler decodes a message and pushes the sample. It runs on the paho
// router goroutine.
func handler[T any](logger *zap.Logger, kind string, decode func([]byte) (T, error), push func(T) error) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		s, err := decode(msg.Payload())
		if err != nil {
			logger.Warn("mqtt: dropping message", zap.String("topic", msg.Topic()), zap.String("kind", kind), zap.Error(err))
			return
		}
		if err := push(s); err != nil {
			logger.Debug("mqtt: channel closed, dropping sample", zap.String("topic", msg.Topic()))
		}
	}
}
