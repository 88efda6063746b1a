// Package worker runs the periodic perception loop: pull a frame, analyze it
// at a fixed cadence, gate recognitions, score emotions, and publish a snapshot.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/behavior/internal/domain/cooldown"
	"github.com/okian/behavior/internal/domain/history"
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/scoring"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"
)

// Default loop configuration constants.
const (
	defaultInterval   = 2 * time.Second
	defaultHistoryCap = 20
	minIdentityIoU    = 0.3
)

// Exit reasons recorded on the final snapshot.
const (
	ExitStopped     = "stopped"
	ExitExhausted   = "exhausted"
	ExitSourceError = "source_error"
)

// Source supplies frames. Next returns model.ErrSourceExhausted at end of stream.
type Source interface {
	Next(ctx context.Context) (model.Frame, error)
	Close() error
}

// Analyzer detects faces and scores their emotions.
type Analyzer interface {
	Analyze(ctx context.Context, frame model.Frame) ([]model.DetectedFace, error)
}

// Identifier matches faces in a frame against a gallery.
type Identifier interface {
	FindIdentity(ctx context.Context, frame model.Frame) ([]model.IdentityMatch, error)
}

// Renderer draws the cached faces over the current frame.
type Renderer interface {
	Render(ctx context.Context, frame model.Frame, faces []model.DetectedFace)
}

// Publisher fans loop events out to subscribers.
type Publisher interface {
	Publish(ev model.Event)
}

// Recorder stores accepted recognitions.
type Recorder interface {
	Record(ctx context.Context, r model.Recognition) error
}

// Sink receives each published snapshot. *atomic.Pointer[model.Snapshot] satisfies it.
type Sink interface {
	Store(s *model.Snapshot)
}

// ResultKind classifies one analyzer call.
type ResultKind int

// Analyzer result kinds.
const (
	ResultSuccess ResultKind = iota
	ResultEmpty
	ResultFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return metrics.ResultSuccess
	case ResultEmpty:
		return metrics.ResultEmpty
	default:
		return metrics.ResultFailure
	}
}

// AnalysisResult is the typed outcome of one analyzer call.
type AnalysisResult struct {
	Kind  ResultKind
	Faces []model.DetectedFace
	Err   error
}

// Loop is one session's perception worker. It is single use: Run once.
type Loop struct {
	source     Source
	analyzer   Analyzer
	identifier Identifier
	renderer   Renderer
	publisher  Publisher
	recorder   Recorder
	sink       Sink
	evaluator  *scoring.Evaluator
	cooldown   *cooldown.Table
	history    *history.History

	name      string
	sessionID string
	interval  time.Duration
	now       func() time.Time
	logger    logger.Logger

	latest atomic.Pointer[model.Snapshot]

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// Loop-owned state, touched only by the Run goroutine.
	faces           []model.DetectedFace
	analyzed        bool
	lastAnalysis    time.Time
	counters        model.AnalysisCounters
	cycle           uint64
	accepted        uint64
	suppressed      uint64
	lastRecognition *model.Recognition
	lastError       string
	averages        model.EmotionScores
	exitReason      string
}

// New creates a loop over source and analyzer with configuration options.
func New(source Source, analyzer Analyzer, opts ...Option) *Loop {
	l := &Loop{
		source:    source,
		analyzer:  analyzer,
		evaluator: scoring.NewEvaluator(),
		name:      "loop",
		interval:  defaultInterval,
		now:       time.Now,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	l.sink = &l.latest

	for _, opt := range opts {
		opt(l)
	}

	if l.cooldown == nil {
		l.cooldown = cooldown.New()
	}
	if l.history == nil {
		l.history = history.New(defaultHistoryCap)
	}
	if l.history.Len() > 0 {
		l.averages = l.history.Averages()
	}
	if l.logger == nil {
		l.logger = logger.Get().Named(l.name)
	}
	if l.sessionID != "" {
		l.logger = l.logger.With(logger.String("session", l.sessionID))
	}
	return l
}

// Run drives the loop until stop, ctx cancellation, or source failure.
// Exhaustion and stop return nil; any other source error is returned wrapped
// in ErrSource. The source is closed exactly once on every path.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer close(l.done)
	defer l.publishFinal(ctx)
	defer func() {
		if cerr := l.source.Close(); cerr != nil {
			l.logger.Warn(ctx, "closing frame source failed", logger.Error(cerr))
		}
	}()

	for {
		if l.stopRequested(ctx) {
			l.exitReason = ExitStopped
			return nil
		}

		frame, nerr := l.source.Next(ctx)
		if nerr != nil {
			switch {
			case errors.Is(nerr, model.ErrSourceExhausted):
				l.exitReason = ExitExhausted
				l.logger.Info(ctx, "frame source exhausted", logger.Uint64("cycles", l.cycle))
				return nil
			case ctx.Err() != nil:
				l.exitReason = ExitStopped
				return nil
			default:
				l.exitReason = ExitSourceError
				l.lastError = nerr.Error()
				l.logger.Error(ctx, "frame source failed", logger.Error(nerr))
				return fmt.Errorf("%w: %w", ErrSource, nerr)
			}
		}

		l.step(ctx, frame)
	}
}

// RequestStop asks the loop to exit at the top of its next iteration. It never blocks.
func (l *Loop) RequestStop() {
	l.stopOnce.Do(func() { close(l.shutdown) })
}

// Wait blocks until Run has returned or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrStopTimeout, ctx.Err())
	}
}

// Stop requests a stop and waits for the loop to finish.
func (l *Loop) Stop(ctx context.Context) error {
	l.RequestStop()
	if err := l.Wait(ctx); err != nil {
		l.logger.Warn(ctx, "stop timed out")
		return err
	}
	return nil
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Latest returns the last snapshot stored in the loop's own pointer, nil before
// the first cycle or when a custom sink is used.
func (l *Loop) Latest() *model.Snapshot { return l.latest.Load() }

// ExitReason is valid after Done is closed.
func (l *Loop) ExitReason() string {
	<-l.done
	return l.exitReason
}

func (l *Loop) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-l.shutdown:
		return true
	default:
		return false
	}
}

// step runs one iteration on an acquired frame.
func (l *Loop) step(ctx context.Context, frame model.Frame) {
	now := l.now()
	l.cycle++
	metrics.RecordFrame()

	var alerts []model.Alert
	if !l.analyzed || now.Sub(l.lastAnalysis) > l.interval {
		res := l.analyze(ctx, frame)
		switch res.Kind {
		case ResultSuccess, ResultEmpty:
			l.faces = res.Faces
			l.lastAnalysis = now
			l.analyzed = true
			l.lastError = ""
			alerts = l.scoreEmotions(ctx, now)
		case ResultFailure:
			l.faces = nil
			l.lastError = res.Err.Error()
			l.logger.Debug(ctx, "analysis failed", logger.Error(res.Err))
			l.emit(model.Event{Kind: model.EventAnalysisFailed, At: now, Message: res.Err.Error()})
		}
		metrics.UpdateFacesCurrent(len(l.faces))
	}

	if l.renderer != nil {
		l.renderer.Render(ctx, frame, l.faces)
	}

	l.recognize(ctx, now)
	l.publish(frame, now, alerts)
}

// analyze calls the analyzer, merges gallery identities and classifies the outcome.
func (l *Loop) analyze(ctx context.Context, frame model.Frame) AnalysisResult {
	start := time.Now()
	l.counters.Attempts++

	res := l.classify(ctx, frame)

	switch res.Kind {
	case ResultSuccess:
		l.counters.Successes++
	case ResultEmpty:
		l.counters.Empty++
	case ResultFailure:
		l.counters.Failures++
	}
	metrics.RecordAnalysis(res.Kind.String(), float64(time.Since(start).Milliseconds()))
	return res
}

func (l *Loop) classify(ctx context.Context, frame model.Frame) AnalysisResult {
	faces, err := l.analyzer.Analyze(ctx, frame)
	switch {
	case errors.Is(err, model.ErrNoFace):
		faces = nil
	case err != nil:
		return AnalysisResult{Kind: ResultFailure, Err: fmt.Errorf("%w: %w", ErrAnalysis, err)}
	}

	if l.identifier != nil {
		matches, ierr := l.identifier.FindIdentity(ctx, frame)
		if ierr != nil && !errors.Is(ierr, model.ErrNoFace) {
			l.logger.Debug(ctx, "identity lookup failed", logger.Error(ierr))
		}
		faces = mergeIdentities(faces, matches)
	}

	if len(faces) == 0 {
		return AnalysisResult{Kind: ResultEmpty}
	}
	return AnalysisResult{Kind: ResultSuccess, Faces: faces}
}

// mergeIdentities attaches each match to the face it overlaps most, or
// appends it as an identity-only face when nothing overlaps enough.
func mergeIdentities(faces []model.DetectedFace, matches []model.IdentityMatch) []model.DetectedFace {
	for _, m := range matches {
		best, bestIoU := -1, minIdentityIoU
		for i := range faces {
			if faces[i].HasIdentity {
				continue
			}
			if iou := faces[i].Region.IoU(m.Region); iou >= bestIoU {
				best, bestIoU = i, iou
			}
		}
		if best < 0 {
			faces = append(faces, model.DetectedFace{Region: m.Region})
			best = len(faces) - 1
		}
		faces[best].Identity = m.Identity
		faces[best].IdentityConfidence = m.Confidence()
		faces[best].HasIdentity = true
	}
	return faces
}

// recognize gates every cached identity through the cooldown table.
func (l *Loop) recognize(ctx context.Context, now time.Time) {
	for _, f := range l.faces {
		if !f.HasIdentity {
			continue
		}
		switch l.cooldown.Admit(ctx, f.Identity, f.IdentityConfidence, now) {
		case cooldown.Accepted:
			l.accepted++
			metrics.RecordRecognition(true)
			r := model.Recognition{Identity: f.Identity, Confidence: f.IdentityConfidence, At: now}
			l.lastRecognition = &r
			l.logger.Info(ctx, "recognized",
				logger.String("identity", f.Identity),
				logger.Float64("confidence", f.IdentityConfidence),
			)
			if l.recorder != nil {
				if err := l.recorder.Record(ctx, r); err != nil {
					l.logger.Warn(ctx, "recording recognition failed", logger.Error(err))
				}
			}
			rc := r
			l.emit(model.Event{Kind: model.EventRecognition, At: now, Recognition: &rc})
		default:
			l.suppressed++
			metrics.RecordRecognition(false)
		}
	}
}

// scoreEmotions feeds the history and evaluates thresholds for a fresh analysis.
func (l *Loop) scoreEmotions(ctx context.Context, now time.Time) []model.Alert {
	var alerts []model.Alert
	scored := false
	for i, f := range l.faces {
		if len(f.Emotions) == 0 {
			continue
		}
		scored = true
		dominant, _ := scoring.Dominant(f.Emotions)
		l.history.Append(now, f.Emotions, dominant)

		for _, a := range l.evaluator.Evaluate(i, f.Emotions, now) {
			alerts = append(alerts, a)
			metrics.RecordAlert(string(a.Kind))
			l.logger.Info(ctx, "alert",
				logger.String("kind", string(a.Kind)),
				logger.Int("face", a.FaceIndex),
				logger.Float64("value", a.Value),
				logger.Float64("threshold", a.Threshold),
			)
			ac := a
			l.emit(model.Event{Kind: model.AlertEventKind(a.Kind), At: now, Alert: &ac})
		}
	}
	if scored {
		l.averages = l.history.Averages()
		metrics.UpdateHistorySize(l.history.Len())
	}
	return alerts
}

func (l *Loop) emit(ev model.Event) {
	if l.publisher == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.SessionID = l.sessionID
	l.publisher.Publish(ev)
}

// publish builds a fresh immutable snapshot and hands it to the sink.
func (l *Loop) publish(frame model.Frame, now time.Time, alerts []model.Alert) {
	s := &model.Snapshot{
		SessionID:              l.sessionID,
		State:                  model.StateRunning,
		Cycle:                  l.cycle,
		FrameSeq:               frame.Seq,
		At:                     now,
		Faces:                  model.CloneFaces(l.faces),
		FaceCount:              len(l.faces),
		Engagement:             l.evaluator.DisplayEngagement(l.faces),
		FaceAverages:           scoring.FaceAverages(l.faces),
		Averages:               l.averages.Clone(),
		HistoryLen:             l.history.Len(),
		Alerts:                 alerts,
		RecognitionsAccepted:   l.accepted,
		RecognitionsSuppressed: l.suppressed,
		Analysis:               l.counters,
		LastAnalysis:           l.lastAnalysis,
		LastError:              l.lastError,
	}
	if l.lastRecognition != nil {
		r := *l.lastRecognition
		s.LastRecognition = &r
	}
	for _, f := range l.faces {
		if len(f.Emotions) == 0 {
			continue
		}
		s.Dominant, s.DominantScore = scoring.Dominant(f.Emotions)
		s.Stress = scoring.Stress(f.Emotions)
		break
	}
	l.sink.Store(s)
}

// publishFinal stores an idle snapshot carrying the exit reason.
func (l *Loop) publishFinal(ctx context.Context) {
	s := &model.Snapshot{
		SessionID:              l.sessionID,
		Cycle:                  l.cycle,
		At:                     l.now(),
		HistoryLen:             l.history.Len(),
		Averages:               l.averages.Clone(),
		RecognitionsAccepted:   l.accepted,
		RecognitionsSuppressed: l.suppressed,
		Analysis:               l.counters,
		LastAnalysis:           l.lastAnalysis,
		LastError:              l.lastError,
	}
	if l.lastRecognition != nil {
		r := *l.lastRecognition
		s.LastRecognition = &r
	}
	s.State = model.StateIdle
	s.ExitReason = l.exitReason
	l.sink.Store(s)
	l.logger.Debug(ctx, "loop finished", logger.String("reason", l.exitReason), logger.Uint64("cycles", l.cycle))
}
