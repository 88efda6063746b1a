package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/behavior/internal/domain/model"
	types "github.com/okian/behavior/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromSnapshot(t *testing.T) {
	Convey("Given a snapshot with two faces", t, func() {
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		snap := model.Snapshot{
			SessionID: "s1",
			State:     model.StateRunning,
			Cycle:     4,
			At:        at,
			Faces: []model.DetectedFace{
				{Region: model.Region{X: 1, Y: 2, W: 3, H: 4}, Identity: "alice", IdentityConfidence: 91, HasIdentity: true,
					Emotions: model.EmotionScores{model.Happy: 42, model.Sad: 42}},
				{Region: model.Region{X: 10, Y: 10, W: 5, H: 5}, Identity: "ignored"},
			},
			FaceCount: 2,
			Alerts:    []model.Alert{{Kind: model.AlertStress, Value: 41, Threshold: 40, At: at}},
			Analysis:  model.AnalysisCounters{Attempts: 3, Failures: 1},
			LastError: "boom",
		}

		view := types.FromSnapshot(snap)

		Convey("Then faces carry their dominant label", func() {
			So(view.Faces, ShouldHaveLength, 2)
			So(view.Faces[0].Dominant, ShouldEqual, "happy")
			So(view.Faces[0].Identity, ShouldEqual, "alice")
			So(view.Faces[1].Dominant, ShouldEqual, "")
		})

		Convey("Then identities without a match flag are hidden", func() {
			So(view.Faces[1].Identity, ShouldEqual, "")
		})

		Convey("Then counters and alerts are carried over", func() {
			So(view.State, ShouldEqual, "running")
			So(view.Analysis.Failures, ShouldEqual, 1)
			So(view.Analysis.LastError, ShouldEqual, "boom")
			So(view.Alerts[0].Kind, ShouldEqual, "stress")
		})

		Convey("Then the JSON uses snake_case keys", func() {
			raw, err := json.Marshal(view)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"face_count":2`)
			So(string(raw), ShouldContainSubstring, `"session_id":"s1"`)
		})
	})

	Convey("Given an empty snapshot", t, func() {
		view := types.FromSnapshot(model.Snapshot{State: model.StateIdle})

		Convey("Then slices are empty rather than null", func() {
			raw, err := json.Marshal(view)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"faces":[]`)
			So(string(raw), ShouldContainSubstring, `"alerts":[]`)
		})
	})
}

func TestFromEvent(t *testing.T) {
	Convey("Given an alert event", t, func() {
		ev := types.FromEvent(model.Event{
			ID:    "e1",
			Kind:  model.EventAlertJoy,
			Alert: &model.Alert{Kind: model.AlertExtremeJoy, Value: 90, Threshold: 85},
		})

		So(ev.Kind, ShouldEqual, "alert.extreme_joy")
		So(ev.Alert, ShouldNotBeNil)
		So(ev.Alert.Value, ShouldEqual, 90)
		So(ev.Recognition, ShouldBeNil)
	})
}
