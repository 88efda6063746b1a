package export

import (
	"time"

	"github.com/okian/behavior/pkg/logger"
)

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}
