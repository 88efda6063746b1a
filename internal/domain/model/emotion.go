// Package model contains domain models passed between layers.
package model

import (
	"strings"
)

// Emotion is one label of the fixed emotion enumeration.
type Emotion string

// Emotion labels.
const (
	Angry    Emotion = "angry"
	Disgust  Emotion = "disgust"
	Fear     Emotion = "fear"
	Happy    Emotion = "happy"
	Sad      Emotion = "sad"
	Surprise Emotion = "surprise"
	Neutral  Emotion = "neutral"
)

// Labels is the enumeration order. Ties in argmax resolve to the earliest label.
var Labels = []Emotion{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral} //nolint:gochecknoglobals // fixed enumeration

// ParseEmotion maps an analyzer label to an Emotion.
func ParseEmotion(s string) (Emotion, bool) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range Labels {
		if l == e {
			return e, true
		}
	}
	return "", false
}

// EmotionScores maps labels to confidences in [0,100].
// Values are independent confidences and need not sum to 100.
type EmotionScores map[Emotion]float64

// Get returns the score for e, 0 when missing.
func (s EmotionScores) Get(e Emotion) float64 {
	return s[e]
}

// Clone returns an independent copy. A nil map stays nil.
func (s EmotionScores) Clone() EmotionScores {
	if s == nil {
		return nil
	}
	out := make(EmotionScores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
