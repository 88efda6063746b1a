package service

import (
	"time"

	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/adapters/overlay"
	"github.com/okian/behavior/internal/adapters/repository"
	"github.com/okian/behavior/internal/domain/cooldown"
	"github.com/okian/behavior/internal/domain/history"
	"github.com/okian/behavior/internal/domain/scoring"
	"github.com/okian/behavior/internal/worker"
	"github.com/okian/behavior/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithIdentifier enables gallery identity matching.
func WithIdentifier(id worker.Identifier) Option {
	return func(s *Service) {
		if id != nil {
			s.identifier = id
		}
	}
}

// WithRenderer sets the overlay renderer.
func WithRenderer(r *overlay.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithBus sets the event bus.
func WithBus(b *events.Bus) Option {
	return func(s *Service) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithStore sets the recognition store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithExporter sets the history exporter.
func WithExporter(e Exporter) Option {
	return func(s *Service) {
		if e != nil {
			s.exporter = e
		}
	}
}

// WithInterval sets the analysis interval of every session.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithEvaluator sets the alert evaluator.
func WithEvaluator(e *scoring.Evaluator) Option {
	return func(s *Service) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// WithCooldown sets the recognition cooldown table shared by all sessions.
func WithCooldown(t *cooldown.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.cooldown = t
		}
	}
}

// WithHistory sets the emotion history shared by all sessions.
func WithHistory(h *history.History) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithClock sets the time source of every session.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
