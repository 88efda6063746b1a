// Package scoring holds the emotion heuristics: dominant label, composite
// stress and engagement scores, and threshold alerts.
package scoring

import (
	"math"
	"time"

	"github.com/okian/behavior/internal/domain/model"
)

// Default threshold configuration constants (0..100 scale).
const (
	defaultStressThreshold     = 40
	defaultEngagementThreshold = 70
	defaultExtremeJoyThreshold = 85
	defaultFocusThreshold      = 30
	maxScoreValue              = 100
)

// Thresholds are the alert levels. An alert fires when a score is strictly above its level.
type Thresholds struct {
	Stress     float64
	Engagement float64
	ExtremeJoy float64
	// Focus is carried for display only.
	Focus float64
}

// DefaultThresholds returns the stock alert levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Stress:     defaultStressThreshold,
		Engagement: defaultEngagementThreshold,
		ExtremeJoy: defaultExtremeJoyThreshold,
		Focus:      defaultFocusThreshold,
	}
}

// DefaultWeights returns the per-label weights of the display engagement score.
func DefaultWeights() map[model.Emotion]float64 {
	return map[model.Emotion]float64{
		model.Happy:    1.0,
		model.Surprise: 0.7,
		model.Neutral:  0.3,
		model.Sad:      0.1,
		model.Angry:    0.1,
		model.Fear:     0.1,
		model.Disgust:  0.1,
	}
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithThresholds replaces the alert levels. Non-positive levels keep the default.
func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) {
		if t.Stress > 0 {
			e.thresholds.Stress = t.Stress
		}
		if t.Engagement > 0 {
			e.thresholds.Engagement = t.Engagement
		}
		if t.ExtremeJoy > 0 {
			e.thresholds.ExtremeJoy = t.ExtremeJoy
		}
		if t.Focus > 0 {
			e.thresholds.Focus = t.Focus
		}
	}
}

// WithWeights overrides display engagement weights.
func WithWeights(weights map[model.Emotion]float64) Option {
	return func(e *Evaluator) {
		for label, w := range weights {
			if w >= 0 {
				e.weights[label] = w
			}
		}
	}
}

// Evaluator applies thresholds and weights to emotion scores.
type Evaluator struct {
	thresholds Thresholds
	weights    map[model.Emotion]float64
}

// NewEvaluator creates an evaluator with configuration options.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		thresholds: DefaultThresholds(),
		weights:    DefaultWeights(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the active alert levels.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Dominant returns the argmax label. Ties go to the earliest label of
// model.Labels; an empty score set has no dominant label.
func Dominant(s model.EmotionScores) (model.Emotion, float64) {
	var (
		best  model.Emotion
		score = math.Inf(-1)
	)
	for _, l := range model.Labels {
		v, ok := s[l]
		if !ok {
			continue
		}
		if v > score {
			best, score = l, v
		}
	}
	if best == "" {
		return "", 0
	}
	return best, score
}

// Stress is angry + fear + sad.
func Stress(s model.EmotionScores) float64 {
	return s.Get(model.Angry) + s.Get(model.Fear) + s.Get(model.Sad)
}

// Engagement is happy + surprise.
func Engagement(s model.EmotionScores) float64 {
	return s.Get(model.Happy) + s.Get(model.Surprise)
}

// Evaluate returns one alert per threshold exceeded by a single face.
// Alerts are level-triggered: the same scores fire again on the next cycle.
func (e *Evaluator) Evaluate(faceIndex int, s model.EmotionScores, at time.Time) []model.Alert {
	if len(s) == 0 {
		return nil
	}
	var alerts []model.Alert
	check := func(kind model.AlertKind, value, threshold float64) {
		if value > threshold {
			alerts = append(alerts, model.Alert{
				Kind:      kind,
				FaceIndex: faceIndex,
				Value:     value,
				Threshold: threshold,
				At:        at,
			})
		}
	}
	check(model.AlertStress, Stress(s), e.thresholds.Stress)
	check(model.AlertEngagement, Engagement(s), e.thresholds.Engagement)
	check(model.AlertExtremeJoy, s.Get(model.Happy), e.thresholds.ExtremeJoy)
	return alerts
}

// FaceEngagement weights the dominant score of one face, clamped to 0..100.
func (e *Evaluator) FaceEngagement(s model.EmotionScores) float64 {
	label, score := Dominant(s)
	if label == "" {
		return 0
	}
	return math.Max(0, math.Min(maxScoreValue, score*e.weights[label]))
}

// DisplayEngagement is the mean FaceEngagement over faces with scores; 0 when none.
func (e *Evaluator) DisplayEngagement(faces []model.DetectedFace) float64 {
	var (
		sum float64
		n   int
	)
	for _, f := range faces {
		if len(f.Emotions) == 0 {
			continue
		}
		sum += e.FaceEngagement(f.Emotions)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FaceAverages is the per-label mean across faces with scores; nil when none.
func FaceAverages(faces []model.DetectedFace) model.EmotionScores {
	var (
		sums = make(model.EmotionScores, len(model.Labels))
		n    int
	)
	for _, f := range faces {
		if len(f.Emotions) == 0 {
			continue
		}
		for _, l := range model.Labels {
			sums[l] += f.Emotions.Get(l)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for l := range sums {
		sums[l] /= float64(n)
	}
	return sums
}
