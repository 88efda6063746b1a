package service_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/behavior/internal/adapters/analyzer"
	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/adapters/export"
	"github.com/okian/behavior/internal/adapters/source"
	service "github.com/okian/behavior/internal/app"
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/worker"
	"github.com/okian/behavior/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func patternFactory(opts ...source.Option) service.SourceFactory {
	return func(context.Context) (worker.Source, error) {
		return source.NewPattern(append([]source.Option{source.WithSize(64, 48), source.WithFPS(200)}, opts...)...), nil
	}
}

func waitIdle(svc *service.Service) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !svc.Running() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService_StartStop(t *testing.T) {
	Convey("Given an idle service on an endless pattern source", t, func() {
		svc := service.New(patternFactory(), analyzer.NewDemo(), service.WithInterval(time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer func() { _ = svc.Close(ctx) }()

		Convey("Then it reports an idle snapshot", func() {
			So(svc.Running(), ShouldBeFalse)
			So(svc.Snapshot().State, ShouldEqual, model.StateIdle)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When a session is started", func() {
			id, err := svc.Start(ctx)
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
			So(svc.Running(), ShouldBeTrue)

			Convey("Then a second start is rejected", func() {
				again, err := svc.Start(ctx)
				So(errors.Is(err, service.ErrAlreadyRunning), ShouldBeTrue)
				So(again, ShouldEqual, id)
			})

			Convey("Then running snapshots carry faces and scores", func() {
				So(waitFor(func() bool { return svc.Snapshot().FaceCount > 0 }), ShouldBeTrue)
				snap := svc.Snapshot()
				So(snap.State, ShouldEqual, model.StateRunning)
				So(snap.SessionID, ShouldEqual, id)
				So(snap.Dominant, ShouldNotBeEmpty)
			})

			Convey("Then the overlay frame becomes available", func() {
				So(waitFor(func() bool { _, ok, _ := svc.Frame(); return ok }), ShouldBeTrue)
			})

			Convey("And when it is stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)

				Convey("Then the service is idle with the stop reason", func() {
					So(svc.Running(), ShouldBeFalse)
					snap := svc.Snapshot()
					So(snap.State, ShouldEqual, model.StateIdle)
					So(snap.ExitReason, ShouldEqual, worker.ExitStopped)
					So(svc.GetStats()["lastExitReason"], ShouldEqual, worker.ExitStopped)
				})

				Convey("Then stopping again is a no-op", func() {
					So(svc.Stop(ctx), ShouldBeNil)
				})
			})
		})
	})
}

func TestService_SourceExhaustion(t *testing.T) {
	Convey("Given a service on a three frame source", t, func() {
		svc := service.New(patternFactory(source.WithFrames(3)), analyzer.NewDemo(), service.WithInterval(time.Nanosecond))
		ctx := context.Background()
		defer func() { _ = svc.Close(ctx) }()

		Convey("When two sessions run to exhaustion", func() {
			_, err := svc.Start(ctx)
			So(err, ShouldBeNil)
			So(waitIdle(svc), ShouldBeTrue)
			first := len(svc.History(time.Time{}))

			_, err = svc.Start(ctx)
			So(err, ShouldBeNil)
			So(waitIdle(svc), ShouldBeTrue)

			Convey("Then each session ends as exhausted", func() {
				So(svc.Snapshot().ExitReason, ShouldEqual, worker.ExitExhausted)
				So(svc.GetStats()["sessions"], ShouldEqual, uint64(2))
			})

			Convey("Then history persists across sessions", func() {
				So(first, ShouldBeGreaterThan, 0)
				So(len(svc.History(time.Time{})), ShouldBeGreaterThan, first)
				So(svc.History(time.Now().Add(time.Hour)), ShouldBeEmpty)
			})
		})
	})
}

func TestService_StartFailure(t *testing.T) {
	Convey("Given a source factory that fails", t, func() {
		boom := errors.New("no camera")
		svc := service.New(func(context.Context) (worker.Source, error) { return nil, boom }, analyzer.NewDemo())

		_, err := svc.Start(context.Background())

		So(errors.Is(err, service.ErrStart), ShouldBeTrue)
		So(errors.Is(err, boom), ShouldBeTrue)
		So(svc.Running(), ShouldBeFalse)
	})
}

func TestService_RecognitionsAndEvents(t *testing.T) {
	Convey("Given a service whose analyzer recognizes alice", t, func() {
		region := model.Region{X: 10, Y: 10, W: 30, H: 30}
		fake := analyzer.NewFake(analyzer.Step{
			Faces:   []model.DetectedFace{{Region: region, Emotions: model.EmotionScores{model.Angry: 30, model.Sad: 20}}},
			Matches: []model.IdentityMatch{{Region: region, Identity: "alice", Distance: 0.1}},
		})
		bus := events.New()
		svc := service.New(patternFactory(source.WithFrames(5)), fake,
			service.WithIdentifier(fake),
			service.WithBus(bus),
			service.WithInterval(time.Nanosecond),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer func() { _ = svc.Close(ctx) }()

		sub := bus.Subscribe(64)

		_, err := svc.Start(ctx)
		So(err, ShouldBeNil)
		So(waitIdle(svc), ShouldBeTrue)

		Convey("Then alice is logged once inside the cooldown window", func() {
			top, err := svc.Recognitions(ctx, 10)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 1)
			So(top[0].Identity, ShouldEqual, "alice")
			So(top[0].Count, ShouldEqual, 1)
			So(top[0].BestConfidence, ShouldAlmostEqual, 90, 1e-9)
		})

		Convey("Then stress alerts and session events reach subscribers", func() {
			seen := map[model.EventKind]int{}
			for seen[model.EventSessionStopped] == 0 {
				ev, err := sub.Receive(ctx)
				So(err, ShouldBeNil)
				seen[ev.Kind]++
			}
			So(seen[model.EventSessionStarted], ShouldEqual, 1)
			So(seen[model.EventRecognition], ShouldEqual, 1)
			So(seen[model.EventAlertStress], ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestService_Export(t *testing.T) {
	Convey("Given a service that has collected history", t, func() {
		dir := t.TempDir()
		svc := service.New(patternFactory(source.WithFrames(2)), analyzer.NewDemo(),
			service.WithExporter(export.New(dir, "Lobby Test")),
			service.WithInterval(time.Nanosecond),
		)
		ctx := context.Background()
		defer func() { _ = svc.Close(ctx) }()

		_, err := svc.Start(ctx)
		So(err, ShouldBeNil)
		So(waitIdle(svc), ShouldBeTrue)

		Convey("When the history is exported", func() {
			path, err := svc.Export(ctx)

			Convey("Then a CSV file exists with one row per entry", func() {
				So(err, ShouldBeNil)
				So(path, ShouldStartWith, dir)
				So(path, ShouldContainSubstring, "lobby-test_")
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldStartWith, "timestamp,angry,disgust,fear,happy,sad,surprise,neutral,dominant\n")
			})
		})
	})
}
