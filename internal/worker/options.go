package worker

import (
	"time"

	"github.com/okian/behavior/internal/domain/cooldown"
	"github.com/okian/behavior/internal/domain/history"
	"github.com/okian/behavior/internal/domain/scoring"
	"github.com/okian/behavior/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName sets the loop name used in logs.
func WithName(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithSessionID tags snapshots and events.
func WithSessionID(id string) Option {
	return func(l *Loop) {
		l.sessionID = id
	}
}

// WithInterval sets the minimum gap between analyzer calls.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIdentifier enables gallery identity matching.
func WithIdentifier(id Identifier) Option {
	return func(l *Loop) {
		l.identifier = id
	}
}

// WithRenderer sets the overlay renderer.
func WithRenderer(r Renderer) Option {
	return func(l *Loop) {
		l.renderer = r
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(l *Loop) {
		l.publisher = p
	}
}

// WithRecorder sets the store of accepted recognitions.
func WithRecorder(r Recorder) Option {
	return func(l *Loop) {
		l.recorder = r
	}
}

// WithSink sets where snapshots are published.
func WithSink(s Sink) Option {
	return func(l *Loop) {
		if s != nil {
			l.sink = s
		}
	}
}

// WithEvaluator sets the emotion heuristics.
func WithEvaluator(e *scoring.Evaluator) Option {
	return func(l *Loop) {
		if e != nil {
			l.evaluator = e
		}
	}
}

// WithCooldown shares a cooldown table across sessions.
func WithCooldown(t *cooldown.Table) Option {
	return func(l *Loop) {
		if t != nil {
			l.cooldown = t
		}
	}
}

// WithHistory shares an emotion history across sessions.
func WithHistory(h *history.History) Option {
	return func(l *Loop) {
		if h != nil {
			l.history = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}
