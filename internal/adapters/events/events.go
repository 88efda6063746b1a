// Package events fans perception events out to in-process subscribers.
package events

import (
	"context"
	"errors"

	"github.com/leandro-lugaresi/hub"

	"github.com/okian/behavior/internal/domain/model"
)

const (
	eventField      = "event"
	defaultCapacity = 64
)

// ErrClosed is returned by Receive after the subscription was closed.
var ErrClosed = errors.New("subscription closed")

// AllKinds lists every topic the loop and the session service publish.
var AllKinds = []model.EventKind{ //nolint:gochecknoglobals // fixed topic list
	model.EventRecognition,
	model.EventAlertStress,
	model.EventAlertEngage,
	model.EventAlertJoy,
	model.EventAnalysisFailed,
	model.EventSessionStarted,
	model.EventSessionStopped,
}

// Bus is a topic based pub/sub hub. Publish never blocks: subscribers that
// fall behind lose events.
type Bus struct {
	h *hub.Hub
}

// New creates a bus.
func New() *Bus {
	return &Bus{h: hub.New()}
}

// Publish sends ev to every subscriber of ev.Kind.
func (b *Bus) Publish(ev model.Event) {
	b.h.Publish(hub.Message{
		Name:   string(ev.Kind),
		Fields: hub.Fields{eventField: ev},
	})
}

// Subscribe returns a subscription to kinds, or to every kind when none is given.
// capacity < 1 uses a default buffer.
func (b *Bus) Subscribe(capacity int, kinds ...model.EventKind) *Subscription {
	if capacity < 1 {
		capacity = defaultCapacity
	}
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	topics := make([]string, len(kinds))
	for i, k := range kinds {
		topics[i] = string(k)
	}
	return &Subscription{bus: b, sub: b.h.NonBlockingSubscribe(capacity, topics...)}
}

// Close closes every subscription.
func (b *Bus) Close() {
	b.h.Close()
}

// Subscription receives events for its topics.
type Subscription struct {
	bus *Bus
	sub hub.Subscription
}

// Receive waits for the next event.
func (s *Subscription) Receive(ctx context.Context) (model.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return model.Event{}, ctx.Err()
		case msg, ok := <-s.sub.Receiver:
			if !ok {
				return model.Event{}, ErrClosed
			}
			if ev, ok := msg.Fields[eventField].(model.Event); ok {
				return ev, nil
			}
		}
	}
}

// Close unsubscribes.
func (s *Subscription) Close() {
	s.bus.h.Unsubscribe(s.sub)
}
