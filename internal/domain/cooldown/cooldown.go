package cooldown

import (
	"context"
	"sync"
	"time"
)

// Default gate configuration constants.
const (
	defaultWindow        = 30 * time.Second
	defaultMinConfidence = 80.0
)

// Decision is the outcome of Admit.
type Decision int

// Admit outcomes.
const (
	Accepted Decision = iota
	BelowThreshold
	CoolingDown
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case BelowThreshold:
		return "below_threshold"
	case CoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

// Table maps identity -> last logged time. Entries are created on the first
// accepted recognition, moved forward on each later one and never removed.
type Table struct {
	mu            sync.RWMutex
	last          map[string]time.Time
	window        time.Duration
	minConfidence float64
}

// New creates a Table with configuration options.
func New(opts ...Option) *Table {
	t := &Table{
		last:          make(map[string]time.Time),
		window:        defaultWindow,
		minConfidence: defaultMinConfidence,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Admit decides whether a recognition of identity at now should be logged and
// records it when accepted. The check and the update are atomic.
func (t *Table) Admit(_ context.Context, identity string, confidence float64, now time.Time) Decision {
	if confidence < t.minConfidence {
		return BelowThreshold
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[identity]; ok && now.Sub(last) < t.window {
		return CoolingDown
	}
	t.last[identity] = now
	return Accepted
}

// Last returns the last logged time of identity.
func (t *Table) Last(identity string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.last[identity]
	return at, ok
}

// Set records identity as logged at at. Used to restore or seed the table.
func (t *Table) Set(identity string, at time.Time) {
	t.mu.Lock()
	t.last[identity] = at
	t.mu.Unlock()
}

// Size returns the number of identities ever logged.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.last)
}

// Window returns the configured cooldown window.
func (t *Table) Window() time.Duration { return t.window }

// MinConfidence returns the configured confidence gate.
func (t *Table) MinConfidence() float64 { return t.minConfidence }
