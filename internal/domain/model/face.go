package model

import (
	"image"
	"time"
)

// Region is a face bounding box in frame pixels.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// IoU returns the intersection over union of two regions.
func (r Region) IoU(o Region) float64 {
	a, b := r.Rect(), o.Rect()
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

// DetectedFace is one face of one analysis cycle.
type DetectedFace struct {
	Region             Region
	Identity           string
	IdentityConfidence float64
	HasIdentity        bool
	// Emotions is nil when the analyzer returned no scores for this face.
	Emotions EmotionScores
}

// Clone returns a copy that shares no maps with f.
func (f DetectedFace) Clone() DetectedFace {
	f.Emotions = f.Emotions.Clone()
	return f
}

// CloneFaces copies a face slice deeply.
func CloneFaces(in []DetectedFace) []DetectedFace {
	if in == nil {
		return nil
	}
	out := make([]DetectedFace, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// IdentityMatch is one gallery hit for a face found in a frame.
type IdentityMatch struct {
	Region   Region
	Identity string
	// Distance is the cosine distance to the closest gallery embedding.
	Distance float64
}

// Confidence converts the distance into a 0..100 match confidence.
func (m IdentityMatch) Confidence() float64 {
	c := (1 - m.Distance) * 100
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

// Frame is one image pulled from a frame source.
type Frame struct {
	Image      image.Image
	Seq        uint64
	CapturedAt time.Time
}

// HistoryEntry is one retained analysis sample.
type HistoryEntry struct {
	At       time.Time
	Scores   EmotionScores
	Dominant Emotion
}
