package model

import (
	"time"
)

// SessionState is the state of the perception session.
type SessionState string

// Session states.
const (
	StateIdle    SessionState = "idle"
	StateRunning SessionState = "running"
)

// AnalysisCounters count analyzer calls by result.
type AnalysisCounters struct {
	Attempts  uint64
	Successes uint64
	Empty     uint64
	Failures  uint64
}

// Snapshot is the derived state of one cycle. It is built once and never
// mutated after publication; readers get it by value.
type Snapshot struct {
	SessionID string
	State     SessionState
	Cycle     uint64
	FrameSeq  uint64
	At        time.Time

	Faces     []DetectedFace
	FaceCount int

	// Dominant and DominantScore describe the first face with scores.
	Dominant      Emotion
	DominantScore float64
	// Stress is angry+fear+sad of the first face with scores.
	Stress float64
	// Engagement is the weighted display engagement over all faces.
	Engagement float64
	// FaceAverages is the per-label mean across current faces.
	FaceAverages EmotionScores
	// Averages is the per-label mean across the emotion history.
	Averages   EmotionScores
	HistoryLen int

	Alerts []Alert

	RecognitionsAccepted   uint64
	RecognitionsSuppressed uint64
	LastRecognition        *Recognition

	Analysis     AnalysisCounters
	LastAnalysis time.Time
	LastError    string
	ExitReason   string
}

// Clone returns a deep copy so callers can never reach published memory.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.Faces = CloneFaces(s.Faces)
	out.FaceAverages = s.FaceAverages.Clone()
	out.Averages = s.Averages.Clone()
	if s.Alerts != nil {
		out.Alerts = append([]Alert(nil), s.Alerts...)
	}
	if s.LastRecognition != nil {
		r := *s.LastRecognition
		out.LastRecognition = &r
	}
	return out
}
