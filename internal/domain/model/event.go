package model

import (
	"time"
)

// AlertKind names a threshold.
type AlertKind string

// Alert kinds.
const (
	AlertStress     AlertKind = "stress"
	AlertEngagement AlertKind = "engagement"
	AlertExtremeJoy AlertKind = "extreme_joy"
)

// Alert is raised once per threshold exceeded per face per analysis cycle.
type Alert struct {
	Kind      AlertKind
	FaceIndex int
	Value     float64
	Threshold float64
	At        time.Time
}

// Recognition is an accepted identity log record.
type Recognition struct {
	Identity   string
	Confidence float64
	At         time.Time
}

// EventKind doubles as the bus topic.
type EventKind string

// Event kinds.
const (
	EventRecognition    EventKind = "recognition.accepted"
	EventAlertStress    EventKind = "alert.stress"
	EventAlertEngage    EventKind = "alert.engagement"
	EventAlertJoy       EventKind = "alert.extreme_joy"
	EventAnalysisFailed EventKind = "analysis.failed"
	EventSessionStarted EventKind = "session.started"
	EventSessionStopped EventKind = "session.stopped"
)

// AlertEventKind maps an alert kind to its topic.
func AlertEventKind(k AlertKind) EventKind {
	switch k {
	case AlertStress:
		return EventAlertStress
	case AlertEngagement:
		return EventAlertEngage
	default:
		return EventAlertJoy
	}
}

// Event is emitted by the perception loop and the session service.
type Event struct {
	ID          string
	Kind        EventKind
	SessionID   string
	At          time.Time
	Recognition *Recognition
	Alert       *Alert
	// Message carries the error text of analysis.failed and the exit reason of session.stopped.
	Message string
}
