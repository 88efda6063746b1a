package emitter

import (
	"time"

	"github.com/okian/behavior/pkg/logger"
)

// Option applies a configuration option to the Emitter.
type Option func(*Emitter)

// WithQoS sets the publish QoS (0, 1 or 2).
func WithQoS(qos int) Option {
	return func(e *Emitter) {
		if qos >= 0 && qos <= 2 {
			e.qos = byte(qos)
		}
	}
}

// WithPublishTimeout bounds the wait for a publish acknowledgement.
func WithPublishTimeout(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithConnectTimeout bounds the wait for the first broker connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.dialWait = d
		}
	}
}

// WithLogger sets a custom logger for the emitter.
func WithLogger(l logger.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}
