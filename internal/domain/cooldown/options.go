// Package cooldown tracks when each identity was last logged.
package cooldown

import "time"

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithWindow sets the minimum gap between two logs of the same identity.
// A zero window admits every recognition that passes the confidence gate.
func WithWindow(window time.Duration) Option {
	return func(t *Table) {
		if window >= 0 {
			t.window = window
		}
	}
}

// WithMinConfidence sets the confidence gate (0..100, inclusive).
func WithMinConfidence(minConfidence float64) Option {
	return func(t *Table) {
		if minConfidence >= 0 && minConfidence <= 100 {
			t.minConfidence = minConfidence
		}
	}
}
