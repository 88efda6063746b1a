// Package service owns the perception session: it starts and stops the loop,
// keeps the latest snapshot, and serves the data the HTTP API needs.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/adapters/export"
	"github.com/okian/behavior/internal/adapters/overlay"
	"github.com/okian/behavior/internal/adapters/repository"
	"github.com/okian/behavior/internal/domain/cooldown"
	"github.com/okian/behavior/internal/domain/history"
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/scoring"
	"github.com/okian/behavior/internal/domain/types"
	"github.com/okian/behavior/internal/worker"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"
)

// SourceFactory opens a fresh frame source for a session.
type SourceFactory func(ctx context.Context) (worker.Source, error)

// Exporter writes history entries somewhere and returns where.
type Exporter interface {
	Export(ctx context.Context, entries []model.HistoryEntry) (string, error)
}

type session struct {
	id       string
	started  time.Time
	loop     *worker.Loop
	finished chan struct{}
}

// Service is the Idle/Running state machine around the perception loop.
// History and the cooldown table outlive sessions; counters do not.
type Service struct {
	mu sync.RWMutex

	openSource SourceFactory
	analyzer   worker.Analyzer
	identifier worker.Identifier
	renderer   *overlay.Renderer
	bus        *events.Bus
	store      repository.Store
	exporter   Exporter
	evaluator  *scoring.Evaluator
	cooldown   *cooldown.Table
	history    *history.History
	interval   time.Duration
	now        func() time.Time

	snapshot atomic.Pointer[model.Snapshot]
	current  *session
	sessions uint64
	lastExit string

	logger logger.Logger
}

// New constructs a service. Nothing runs until Start.
func New(open SourceFactory, analyzer worker.Analyzer, opts ...Option) *Service {
	s := &Service{
		openSource: open,
		analyzer:   analyzer,
		renderer:   overlay.New(),
		bus:        events.New(),
		store:      repository.NewTreapStore(),
		exporter:   export.New(".", "session"),
		evaluator:  scoring.NewEvaluator(),
		cooldown:   cooldown.New(),
		history:    history.New(0),
		interval:   2 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	return s
}

// Start opens a source and launches a new session. It returns the session id.
func (s *Service) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current.id, ErrAlreadyRunning
	}

	src, err := s.openSource(ctx)
	if err != nil {
		s.logger.Error(ctx, "opening frame source failed", logger.Error(err))
		return "", fmt.Errorf("%w: %w", ErrStart, err)
	}

	sess := &session{id: uuid.NewString(), started: s.now(), finished: make(chan struct{})}
	opts := []worker.Option{
		worker.WithSessionID(sess.id),
		worker.WithInterval(s.interval),
		worker.WithClock(s.now),
		worker.WithRenderer(s.renderer),
		worker.WithPublisher(s.bus),
		worker.WithRecorder(s.store),
		worker.WithSink(&s.snapshot),
		worker.WithEvaluator(s.evaluator),
		worker.WithCooldown(s.cooldown),
		worker.WithHistory(s.history),
		worker.WithLogger(s.logger.Named("loop")),
	}
	if s.identifier != nil {
		opts = append(opts, worker.WithIdentifier(s.identifier))
	}
	sess.loop = worker.New(src, s.analyzer, opts...)

	s.current = sess
	s.sessions++
	s.lastExit = ""

	// The loop outlives the request that started it.
	go s.run(context.WithoutCancel(ctx), sess)

	metrics.UpdateSessionRunning(true)
	s.publish(model.Event{Kind: model.EventSessionStarted, SessionID: sess.id, At: sess.started})
	s.logger.Info(ctx, "session started", logger.String("session", sess.id), logger.Duration("interval", s.interval))
	return sess.id, nil
}

func (s *Service) run(ctx context.Context, sess *session) {
	defer close(sess.finished)

	err := sess.loop.Run(ctx)
	reason := sess.loop.ExitReason()

	s.mu.Lock()
	if s.current == sess {
		s.current = nil
	}
	s.lastExit = reason
	s.mu.Unlock()

	metrics.UpdateSessionRunning(false)
	metrics.RecordSessionEnd(reason)

	ev := model.Event{Kind: model.EventSessionStopped, SessionID: sess.id, At: s.now(), Message: reason}
	s.publish(ev)

	fields := []logger.Field{
		logger.String("session", sess.id),
		logger.String("reason", reason),
		logger.Duration("uptime", s.now().Sub(sess.started)),
	}
	if err != nil {
		s.logger.Error(ctx, "session ended", append(fields, logger.Error(err))...)
		return
	}
	s.logger.Info(ctx, "session ended", fields...)
}

// Stop ends the running session and waits until it is Idle. Stop while Idle is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.RLock()
	sess := s.current
	s.mu.RUnlock()
	if sess == nil {
		return nil
	}

	sess.loop.RequestStop()
	select {
	case <-sess.finished:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "stop timed out", logger.String("session", sess.id))
		return fmt.Errorf("%w: %w", worker.ErrStopTimeout, ctx.Err())
	}
}

// Running reports whether a session is active.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Snapshot returns the latest published snapshot by value. Before the first
// session it returns an idle snapshot.
func (s *Service) Snapshot() model.Snapshot {
	if p := s.snapshot.Load(); p != nil {
		return p.Clone()
	}
	return model.Snapshot{
		State:      model.StateIdle,
		At:         s.now(),
		HistoryLen: s.history.Len(),
		Averages:   s.history.Averages(),
	}
}

// History returns copies of the retained entries, only those after since
// when since is non-zero.
func (s *Service) History(since time.Time) []model.HistoryEntry {
	if since.IsZero() {
		return s.history.Entries()
	}
	return s.history.Since(since)
}

// Export writes the current history through the exporter.
func (s *Service) Export(ctx context.Context) (string, error) {
	return s.exporter.Export(ctx, s.history.Entries())
}

// Recognitions returns the most recognized identities.
func (s *Service) Recognitions(ctx context.Context, limit int) ([]types.Entry, error) {
	entries, err := s.store.TopN(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{
			Rank:           e.Rank,
			Identity:       e.Identity,
			Count:          e.Count,
			BestConfidence: e.BestConfidence,
			FirstSeen:      e.FirstSeen,
			LastSeen:       e.LastSeen,
		}
	}
	return out, nil
}

// Frame returns the latest annotated frame as JPEG; ok is false before the first frame.
func (s *Service) Frame() ([]byte, bool, error) {
	return s.renderer.JPEG()
}

// Subscribe returns a subscription to every loop and session event.
func (s *Service) Subscribe(capacity int) *events.Subscription {
	return s.bus.Subscribe(capacity)
}

// Thresholds returns the alert thresholds in use.
func (s *Service) Thresholds() scoring.Thresholds {
	return s.evaluator.Thresholds()
}

func (s *Service) publish(ev model.Event) {
	ev.ID = uuid.NewString()
	s.bus.Publish(ev)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	th := s.evaluator.Thresholds()
	stats := map[string]any{
		"running":            s.current != nil,
		"sessions":           s.sessions,
		"intervalMs":         s.interval.Milliseconds(),
		"historyLength":      s.history.Len(),
		"historyCapacity":    s.history.Cap(),
		"cooldownIdentities": s.cooldown.Size(),
		"cooldownSeconds":    s.cooldown.Window().Seconds(),
		"identityThreshold":  s.cooldown.MinConfidence(),
		"identitiesTracked":  s.store.Count(ctx),
		"thresholds": map[string]float64{
			"stress":      th.Stress,
			"engagement":  th.Engagement,
			"extreme_joy": th.ExtremeJoy,
			"focus":       th.Focus,
		},
	}
	if s.current != nil {
		stats["sessionId"] = s.current.id
		stats["uptimeSeconds"] = s.now().Sub(s.current.started).Seconds()
	}
	if s.lastExit != "" {
		stats["lastExitReason"] = s.lastExit
	}
	if p := s.snapshot.Load(); p != nil {
		stats["cycles"] = p.Cycle
		stats["analysis"] = p.Analysis
	}
	return stats
}

// Close stops any running session and closes the event bus.
func (s *Service) Close(ctx context.Context) error {
	err := s.Stop(ctx)
	s.bus.Close()
	return err
}
