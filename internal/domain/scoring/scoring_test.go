package scoring_test

import (
	"testing"
	"time"

	"github.com/okian/behavior/internal/domain/model"
	scoring "github.com/okian/behavior/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDominant(t *testing.T) {
	Convey("Given emotion scores", t, func() {
		Convey("When two labels tie for the maximum", func() {
			label, score := scoring.Dominant(model.EmotionScores{model.Happy: 42, model.Sad: 42, model.Neutral: 10})

			Convey("Then the earlier label in enumeration order wins", func() {
				So(label, ShouldEqual, model.Happy)
				So(score, ShouldEqual, 42)
			})
		})

		Convey("When one label is highest", func() {
			label, score := scoring.Dominant(model.EmotionScores{model.Angry: 5, model.Surprise: 77.5, model.Neutral: 17.5})
			So(label, ShouldEqual, model.Surprise)
			So(score, ShouldEqual, 77.5)
		})

		Convey("When all scores are zero", func() {
			label, _ := scoring.Dominant(model.EmotionScores{model.Fear: 0, model.Angry: 0})
			So(label, ShouldEqual, model.Angry)
		})

		Convey("When there are no scores", func() {
			label, score := scoring.Dominant(nil)
			So(label, ShouldEqual, model.Emotion(""))
			So(score, ShouldEqual, 0)
		})
	})
}

func TestComposites(t *testing.T) {
	Convey("Given scores that do not sum to 100", t, func() {
		s := model.EmotionScores{model.Angry: 20, model.Fear: 15, model.Sad: 10, model.Happy: 60, model.Surprise: 30}

		So(scoring.Stress(s), ShouldEqual, 45)
		So(scoring.Engagement(s), ShouldEqual, 90)
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given an evaluator with default thresholds", t, func() {
		e := scoring.NewEvaluator()
		now := time.Unix(1000, 0)

		Convey("When stress is strictly above 40", func() {
			alerts := e.Evaluate(0, model.EmotionScores{model.Angry: 20, model.Fear: 11, model.Sad: 10}, now)

			Convey("Then one stress alert fires", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Kind, ShouldEqual, model.AlertStress)
				So(alerts[0].Value, ShouldEqual, 41)
				So(alerts[0].Threshold, ShouldEqual, 40)
				So(alerts[0].At, ShouldEqual, now)
			})
		})

		Convey("When stress equals the threshold", func() {
			alerts := e.Evaluate(0, model.EmotionScores{model.Angry: 20, model.Fear: 10, model.Sad: 10}, now)
			So(alerts, ShouldBeEmpty)
		})

		Convey("When happiness is extreme", func() {
			alerts := e.Evaluate(2, model.EmotionScores{model.Happy: 90}, now)

			Convey("Then both engagement and extreme joy fire for that face", func() {
				So(alerts, ShouldHaveLength, 2)
				So(alerts[0].Kind, ShouldEqual, model.AlertEngagement)
				So(alerts[1].Kind, ShouldEqual, model.AlertExtremeJoy)
				So(alerts[1].FaceIndex, ShouldEqual, 2)
			})
		})

		Convey("When the same scores are evaluated on consecutive cycles", func() {
			s := model.EmotionScores{model.Sad: 50}
			total := 0
			for i := 0; i < 3; i++ {
				total += len(e.Evaluate(0, s, now.Add(time.Duration(i)*2*time.Second)))
			}

			Convey("Then the alert re-fires each time", func() {
				So(total, ShouldEqual, 3)
			})
		})

		Convey("When custom thresholds are given", func() {
			custom := scoring.NewEvaluator(scoring.WithThresholds(scoring.Thresholds{Stress: 10}))
			So(custom.Thresholds().Stress, ShouldEqual, 10)
			So(custom.Thresholds().Engagement, ShouldEqual, 70)
			So(custom.Evaluate(0, model.EmotionScores{model.Sad: 11}, now), ShouldHaveLength, 1)
		})
	})
}

func TestDisplayEngagement(t *testing.T) {
	Convey("Given faces with different dominant emotions", t, func() {
		e := scoring.NewEvaluator()
		faces := []model.DetectedFace{
			{Emotions: model.EmotionScores{model.Happy: 80, model.Sad: 5}},
			{Emotions: model.EmotionScores{model.Surprise: 60, model.Neutral: 20}},
			{Emotions: model.EmotionScores{model.Sad: 70}},
			{},
		}

		Convey("Then engagement is the mean weighted dominant score", func() {
			// (80*1.0 + 60*0.7 + 70*0.1) / 3
			So(e.DisplayEngagement(faces), ShouldAlmostEqual, (80+42+7)/3.0, 1e-9)
		})

		Convey("And no faces means zero", func() {
			So(e.DisplayEngagement(nil), ShouldEqual, 0)
		})

		Convey("And custom weights apply", func() {
			w := scoring.NewEvaluator(scoring.WithWeights(map[model.Emotion]float64{model.Sad: 1}))
			So(w.FaceEngagement(model.EmotionScores{model.Sad: 70}), ShouldEqual, 70)
		})
	})
}

func TestFaceAverages(t *testing.T) {
	Convey("Given two faces with scores", t, func() {
		avg := scoring.FaceAverages([]model.DetectedFace{
			{Emotions: model.EmotionScores{model.Happy: 80}},
			{Emotions: model.EmotionScores{model.Happy: 40, model.Fear: 10}},
			{},
		})

		So(avg[model.Happy], ShouldEqual, 60)
		So(avg[model.Fear], ShouldEqual, 5)
		So(avg[model.Neutral], ShouldEqual, 0)
		So(scoring.FaceAverages(nil), ShouldBeNil)
	})
}
