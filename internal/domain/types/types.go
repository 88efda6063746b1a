// Package types contains the JSON views served by the HTTP API and pushed to stream clients.
package types

import (
	"time"

	"github.com/okian/behavior/internal/domain/model"
)

// Entry represents a recognition leaderboard entry.
type Entry struct {
	Rank           int       `json:"rank"`
	Identity       string    `json:"identity"`
	Count          uint64    `json:"count"`
	BestConfidence float64   `json:"best_confidence"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// Face is one detected face.
type Face struct {
	Region             model.Region       `json:"region"`
	Identity           string             `json:"identity,omitempty"`
	IdentityConfidence float64            `json:"identity_confidence,omitempty"`
	Emotions           map[string]float64 `json:"emotions,omitempty"`
	Dominant           string             `json:"dominant,omitempty"`
	DominantScore      float64            `json:"dominant_score,omitempty"`
}

// Alert is one fired threshold.
type Alert struct {
	Kind      string    `json:"kind"`
	Face      int       `json:"face"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"at"`
}

// Recognition is one accepted identity log.
type Recognition struct {
	Identity   string    `json:"identity"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Analysis groups analyzer counters.
type Analysis struct {
	Attempts  uint64    `json:"attempts"`
	Successes uint64    `json:"successes"`
	Empty     uint64    `json:"empty"`
	Failures  uint64    `json:"failures"`
	Last      time.Time `json:"last,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Snapshot is the wire form of model.Snapshot.
type Snapshot struct {
	SessionID              string             `json:"session_id,omitempty"`
	State                  string             `json:"state"`
	Cycle                  uint64             `json:"cycle"`
	FrameSeq               uint64             `json:"frame_seq"`
	At                     time.Time          `json:"at"`
	FaceCount              int                `json:"face_count"`
	Faces                  []Face             `json:"faces"`
	Dominant               string             `json:"dominant,omitempty"`
	DominantScore          float64            `json:"dominant_score"`
	Stress                 float64            `json:"stress"`
	Engagement             float64            `json:"engagement"`
	FaceAverages           map[string]float64 `json:"face_averages,omitempty"`
	Averages               map[string]float64 `json:"averages,omitempty"`
	HistoryLen             int                `json:"history_len"`
	Alerts                 []Alert            `json:"alerts"`
	RecognitionsAccepted   uint64             `json:"recognitions_accepted"`
	RecognitionsSuppressed uint64             `json:"recognitions_suppressed"`
	LastRecognition        *Recognition       `json:"last_recognition,omitempty"`
	Analysis               Analysis           `json:"analysis"`
	ExitReason             string             `json:"exit_reason,omitempty"`
}

// HistoryEntry is one retained emotion sample.
type HistoryEntry struct {
	At       time.Time          `json:"at"`
	Scores   map[string]float64 `json:"scores"`
	Dominant string             `json:"dominant"`
}

// Event is the wire form of model.Event, used by the websocket stream and MQTT.
type Event struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	SessionID   string       `json:"session_id,omitempty"`
	At          time.Time    `json:"at"`
	Recognition *Recognition `json:"recognition,omitempty"`
	Alert       *Alert       `json:"alert,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// Scores converts emotion scores to a JSON-friendly map. Nil stays nil.
func Scores(s model.EmotionScores) map[string]float64 {
	if s == nil {
		return nil
	}
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return out
}

// FromAlert converts a model alert.
func FromAlert(a model.Alert) Alert {
	return Alert{Kind: string(a.Kind), Face: a.FaceIndex, Value: a.Value, Threshold: a.Threshold, At: a.At}
}

// FromRecognition converts a model recognition. Nil stays nil.
func FromRecognition(r *model.Recognition) *Recognition {
	if r == nil {
		return nil
	}
	return &Recognition{Identity: r.Identity, Confidence: r.Confidence, At: r.At}
}

// FromFace converts a detected face with its precomputed dominant label.
func FromFace(f model.DetectedFace, dominant model.Emotion, score float64) Face {
	out := Face{Region: f.Region, Emotions: Scores(f.Emotions), Dominant: string(dominant), DominantScore: score}
	if f.HasIdentity {
		out.Identity = f.Identity
		out.IdentityConfidence = f.IdentityConfidence
	}
	return out
}

// FromHistory converts history entries.
func FromHistory(entries []model.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{At: e.At, Scores: Scores(e.Scores), Dominant: string(e.Dominant)}
	}
	return out
}

// FromEvent converts a loop event.
func FromEvent(e model.Event) Event {
	out := Event{
		ID:          e.ID,
		Kind:        string(e.Kind),
		SessionID:   e.SessionID,
		At:          e.At,
		Recognition: FromRecognition(e.Recognition),
		Message:     e.Message,
	}
	if e.Alert != nil {
		a := FromAlert(*e.Alert)
		out.Alert = &a
	}
	return out
}
