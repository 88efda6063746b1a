package api

import (
	"time"

	"github.com/okian/behavior/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps the limit accepted by /recognitions.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithRedrawInterval sets how often stream clients receive a snapshot.
func WithRedrawInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.redraw = d
		}
	}
}

// WithStopTimeout bounds how long POST /session/stop waits for the loop.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
