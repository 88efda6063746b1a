package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/config"
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/pkg/logger"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{}          { c := make(chan struct{}); close(c); return c }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu    sync.Mutex
	msgs  []published
	token *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

var at = time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC)

func TestEmitter(t *testing.T) {
	Convey("Given an emitter on a fake client", t, func() {
		client := &fakeClient{}
		e := New(client, "behavior/", WithQoS(2), WithLogger(logger.Nop()))

		Convey("Then topics are derived from event kinds", func() {
			So(e.Topic(model.EventAlertStress), ShouldEqual, "behavior/alert/stress")
			So(e.Topic(model.EventRecognition), ShouldEqual, "behavior/recognition/accepted")
		})

		Convey("When an alert is emitted", func() {
			err := e.Emit(model.Event{
				ID: "e1", Kind: model.EventAlertStress, SessionID: "s1", At: at,
				Alert: &model.Alert{Kind: model.AlertStress, Value: 52, Threshold: 40, At: at},
			})

			Convey("Then the JSON view is published with the configured QoS", func() {
				So(err, ShouldBeNil)
				So(client.msgs, ShouldHaveLength, 1)
				So(client.msgs[0].qos, ShouldEqual, 2)

				var body map[string]any
				So(json.Unmarshal(client.msgs[0].payload, &body), ShouldBeNil)
				So(body["kind"], ShouldEqual, "alert.stress")
				So(body["session_id"], ShouldEqual, "s1")
				So(body["alert"].(map[string]any)["value"], ShouldEqual, 52)
				So(e.Stats().Published["behavior/alert/stress"], ShouldEqual, 1)
			})
		})

		Convey("When the broker rejects a publish", func() {
			client.token = &fakeToken{err: errors.New("not authorized")}
			err := e.Emit(model.Event{Kind: model.EventRecognition})

			Convey("Then the error is counted", func() {
				So(errors.Is(err, ErrPublish), ShouldBeTrue)
				So(e.Stats().Errors, ShouldEqual, 1)
			})
		})

		Convey("When the broker never acknowledges", func() {
			client.token = &fakeToken{timeout: true}
			err := e.Emit(model.Event{Kind: model.EventRecognition})
			So(errors.Is(err, ErrTimeout), ShouldBeTrue)
		})
	})
}

func TestEmitterRun(t *testing.T) {
	Convey("Given an emitter forwarding a bus subscription", t, func() {
		bus := events.New()
		defer bus.Close()
		client := &fakeClient{}
		e := New(client, "behavior", WithLogger(logger.Nop()))

		sub := bus.Subscribe(16)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			e.Run(ctx, sub)
			close(done)
		}()

		bus.Publish(model.Event{Kind: model.EventSessionStarted, SessionID: "s1"})
		bus.Publish(model.Event{Kind: model.EventAlertJoy, Alert: &model.Alert{Kind: model.AlertExtremeJoy}})

		deadline := time.Now().Add(2 * time.Second)
		for client.count() < 2 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
		<-done

		So(client.count(), ShouldEqual, 2)
		So(client.msgs[0].topic, ShouldEqual, "behavior/session/started")
		So(client.msgs[1].topic, ShouldEqual, "behavior/alert/extreme_joy")
	})
}

func TestEmitterLoggerOption(t *testing.T) {
	Convey("Given no global logger", t, func() {
		Convey("When an emitter is built with its own logger", func() {
			So(func() { New(&fakeClient{}, "behavior", WithLogger(logger.Nop())) }, ShouldNotPanic)
		})
	})
}

func TestConnectUnreachableBroker(t *testing.T) {
	Convey("Given a broker address nothing listens on", t, func() {
		cfg := config.MQTT{Broker: "127.0.0.1:1", ClientID: "behavior-test", TopicPrefix: "behavior", QoS: 1}

		Convey("When connecting with a short timeout", func() {
			start := time.Now()
			e, err := Connect(context.Background(), cfg,
				WithConnectTimeout(300*time.Millisecond),
				WithLogger(logger.Nop()),
			)

			Convey("Then it fails with ErrConnect and gives up promptly", func() {
				So(e, ShouldBeNil)
				So(errors.Is(err, ErrConnect), ShouldBeTrue)
				So(time.Since(start), ShouldBeLessThan, 5*time.Second)
			})
		})
	})
}
