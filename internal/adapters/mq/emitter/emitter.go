// Package emitter forwards perception events to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/config"
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/types"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"
)

const (
	defaultPublishTimeout = 2 * time.Second
	connectTimeout        = 5 * time.Second
	disconnectQuiesceMs   = 250
)

// Client is the part of mqtt.Client the emitter needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// Stats contains emitter statistics.
type Stats struct {
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

// Emitter publishes events as JSON to <prefix>/<kind>, with the dots of the
// kind turned into topic levels: behavior/alert/stress.
type Emitter struct {
	client     Client
	prefix     string
	qos        byte
	timeout    time.Duration
	dialWait   time.Duration
	disconnect func()

	mu        sync.Mutex
	published map[string]uint64
	errors    uint64

	logger logger.Logger
}

// New creates an emitter over an existing client.
func New(client Client, prefix string, opts ...Option) *Emitter {
	e := &Emitter{
		client:    client,
		prefix:    strings.TrimRight(prefix, "/"),
		qos:       1,
		timeout:   defaultPublishTimeout,
		dialWait:  connectTimeout,
		published: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("mqtt")
	}
	return e
}

// Connect dials the broker in cfg with auto-reconnect and returns an emitter on it.
func Connect(ctx context.Context, cfg config.MQTT, opts ...Option) (*Emitter, error) {
	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	e := New(nil, cfg.TopicPrefix, append([]Option{WithQoS(cfg.QoS)}, opts...)...)

	co := mqtt.NewClientOptions()
	co.AddBroker(broker)
	co.SetClientID(cfg.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)
	co.OnConnect = func(mqtt.Client) {
		e.logger.Info(ctx, "mqtt connection established", logger.String("broker", broker), logger.String("client_id", cfg.ClientID))
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.logger.Warn(ctx, "mqtt connection lost, will auto-reconnect", logger.String("broker", broker), logger.Error(err))
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(e.dialWait) {
		// Connect retry keeps dialing in the background until disconnected.
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, broker, err)
	}

	e.client = client
	e.disconnect = func() { client.Disconnect(disconnectQuiesceMs) }
	return e, nil
}

// Topic returns the topic an event kind is published on.
func (e *Emitter) Topic(kind model.EventKind) string {
	return e.prefix + "/" + strings.ReplaceAll(string(kind), ".", "/")
}

// Emit publishes one event and waits for the broker to acknowledge it.
func (e *Emitter) Emit(ev model.Event) error {
	topic := e.Topic(ev.Kind)
	payload, err := json.Marshal(types.FromEvent(ev))
	if err != nil {
		return e.fail(topic, fmt.Errorf("%w: encode: %w", ErrPublish, err))
	}

	token := e.client.Publish(topic, e.qos, false, payload)
	if !token.WaitTimeout(e.timeout) {
		return e.fail(topic, fmt.Errorf("%w: %s: %w", ErrPublish, topic, ErrTimeout))
	}
	if err := token.Error(); err != nil {
		return e.fail(topic, fmt.Errorf("%w: %s: %w", ErrPublish, topic, err))
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()
	metrics.RecordMQTTPublish(topic, true)
	return nil
}

func (e *Emitter) fail(topic string, err error) error {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
	metrics.RecordMQTTPublish(topic, false)
	return err
}

// Run forwards events from sub until ctx is done or the subscription closes.
// Publish failures are logged and do not stop forwarding.
func (e *Emitter) Run(ctx context.Context, sub *events.Subscription) {
	for {
		ev, err := sub.Receive(ctx)
		if err != nil {
			if !errors.Is(err, events.ErrClosed) && ctx.Err() == nil {
				e.logger.Error(ctx, "event receive failed", logger.Error(err))
			}
			return
		}
		if err := e.Emit(ev); err != nil {
			e.logger.Warn(ctx, "event not forwarded", logger.String("kind", string(ev.Kind)), logger.Error(err))
			continue
		}
		e.logger.Debug(ctx, "event forwarded", logger.String("kind", string(ev.Kind)))
	}
}

// Stats returns a copy of the publish counters.
func (e *Emitter) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Published: published, Errors: e.errors}
}

// Close disconnects from the broker when Connect created the client.
func (e *Emitter) Close() {
	if e.disconnect != nil {
		e.disconnect()
		e.logger.Info(context.Background(), "mqtt disconnected")
	}
}
