package events

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/behavior/internal/domain/model"
)

func TestBus(t *testing.T) {
	Convey("Given a bus with two subscribers", t, func() {
		bus := New()
		defer bus.Close()

		all := bus.Subscribe(8)
		alerts := bus.Subscribe(8, model.EventAlertStress, model.EventAlertJoy)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Convey("When a stress alert and a recognition are published", func() {
			bus.Publish(model.Event{ID: "1", Kind: model.EventAlertStress, Alert: &model.Alert{Kind: model.AlertStress, Value: 55}})
			bus.Publish(model.Event{ID: "2", Kind: model.EventRecognition, Recognition: &model.Recognition{Identity: "alice"}})

			Convey("Then the catch-all subscriber sees both in order", func() {
				ev, err := all.Receive(ctx)
				So(err, ShouldBeNil)
				So(ev.ID, ShouldEqual, "1")
				So(ev.Alert.Value, ShouldEqual, 55)

				ev, err = all.Receive(ctx)
				So(err, ShouldBeNil)
				So(ev.Recognition.Identity, ShouldEqual, "alice")
			})

			Convey("Then the alert subscriber sees only the alert", func() {
				ev, err := alerts.Receive(ctx)
				So(err, ShouldBeNil)
				So(ev.Kind, ShouldEqual, model.EventAlertStress)

				short, stop := context.WithTimeout(context.Background(), 50*time.Millisecond)
				defer stop()
				_, err = alerts.Receive(short)
				So(err, ShouldEqual, context.DeadlineExceeded)
			})
		})

		Convey("When a subscription is closed", func() {
			alerts.Close()

			Convey("Then Receive reports it", func() {
				_, err := alerts.Receive(ctx)
				So(err, ShouldEqual, ErrClosed)
			})
		})
	})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	Convey("Given a subscriber with a one slot buffer", t, func() {
		bus := New()
		defer bus.Close()
		sub := bus.Subscribe(1, model.EventAnalysisFailed)
		defer sub.Close()

		done := make(chan struct{})
		go func() {
			for i := 0; i < 100; i++ {
				bus.Publish(model.Event{Kind: model.EventAnalysisFailed})
			}
			close(done)
		}()

		finished := false
		select {
		case <-done:
			finished = true
		case <-time.After(2 * time.Second):
		}
		So(finished, ShouldBeTrue)
	})
}
