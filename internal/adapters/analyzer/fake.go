package analyzer

import (
	"context"
	"sync"

	"github.com/okian/behavior/internal/domain/model"
)

// Step is one scripted analyzer answer.
type Step struct {
	Faces   []model.DetectedFace
	Matches []model.IdentityMatch
	Err     error
}

// Fake replays scripted steps in order and repeats the last one forever, or
// wraps around when built by NewDemo.
// With no steps it reports model.ErrNoFace.
type Fake struct {
	mu      sync.Mutex
	steps   []Step
	cycle   bool
	calls   int
	idCalls int
}

// NewFake creates a scripted analyzer.
func NewFake(steps ...Step) *Fake {
	return &Fake{steps: steps}
}

// NewDemo returns a fake that cycles through a calm, a joyful and a tense
// face centred in a 640x480 frame, for running without a DeepFace server.
func NewDemo() *Fake {
	region := model.Region{X: 220, Y: 120, W: 200, H: 240}
	profiles := []model.EmotionScores{
		{model.Neutral: 62, model.Happy: 21, model.Sad: 8, model.Surprise: 5, model.Angry: 2, model.Fear: 1, model.Disgust: 1},
		{model.Happy: 88, model.Surprise: 7, model.Neutral: 4, model.Sad: 1},
		{model.Angry: 24, model.Fear: 18, model.Sad: 12, model.Neutral: 40, model.Disgust: 6},
	}
	steps := make([]Step, 0, len(profiles))
	for _, p := range profiles {
		steps = append(steps, Step{Faces: []model.DetectedFace{{Region: region, Emotions: p}}})
	}
	return &Fake{steps: steps, cycle: true}
}

func (f *Fake) next(counter *int) Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		*counter++
		return Step{Err: model.ErrNoFace}
	}
	i := *counter
	if i >= len(f.steps) {
		if f.cycle {
			i %= len(f.steps)
		} else {
			i = len(f.steps) - 1
		}
	}
	*counter++
	return f.steps[i]
}

// Analyze returns the next scripted faces.
func (f *Fake) Analyze(_ context.Context, _ model.Frame) ([]model.DetectedFace, error) {
	s := f.next(&f.calls)
	return model.CloneFaces(s.Faces), s.Err
}

// FindIdentity returns the next scripted matches.
func (f *Fake) FindIdentity(_ context.Context, _ model.Frame) ([]model.IdentityMatch, error) {
	s := f.next(&f.idCalls)
	return append([]model.IdentityMatch(nil), s.Matches...), s.Err
}

// Calls returns the number of Analyze calls so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
