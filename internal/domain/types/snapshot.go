package types

import (
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/scoring"
)

// FromSnapshot converts a published snapshot.
func FromSnapshot(s model.Snapshot) Snapshot { //nolint:gocritic // snapshots are handed around by value
	out := Snapshot{
		SessionID:              s.SessionID,
		State:                  string(s.State),
		Cycle:                  s.Cycle,
		FrameSeq:               s.FrameSeq,
		At:                     s.At,
		FaceCount:              s.FaceCount,
		Faces:                  make([]Face, 0, len(s.Faces)),
		Dominant:               string(s.Dominant),
		DominantScore:          s.DominantScore,
		Stress:                 s.Stress,
		Engagement:             s.Engagement,
		FaceAverages:           Scores(s.FaceAverages),
		Averages:               Scores(s.Averages),
		HistoryLen:             s.HistoryLen,
		Alerts:                 make([]Alert, 0, len(s.Alerts)),
		RecognitionsAccepted:   s.RecognitionsAccepted,
		RecognitionsSuppressed: s.RecognitionsSuppressed,
		LastRecognition:        FromRecognition(s.LastRecognition),
		Analysis: Analysis{
			Attempts:  s.Analysis.Attempts,
			Successes: s.Analysis.Successes,
			Empty:     s.Analysis.Empty,
			Failures:  s.Analysis.Failures,
			Last:      s.LastAnalysis,
			LastError: s.LastError,
		},
		ExitReason: s.ExitReason,
	}
	for _, f := range s.Faces {
		label, score := scoring.Dominant(f.Emotions)
		out.Faces = append(out.Faces, FromFace(f, label, score))
	}
	for _, a := range s.Alerts {
		out.Alerts = append(out.Alerts, FromAlert(a))
	}
	return out
}
