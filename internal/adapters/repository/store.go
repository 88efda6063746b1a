// Package repository keeps per-identity recognition totals.
package repository

import (
	"context"
	"time"

	"github.com/okian/behavior/internal/domain/model"
)

// Entry is one identity's recognition totals.
type Entry struct {
	Rank           int
	Identity       string
	Count          uint64
	BestConfidence float64
	FirstSeen      time.Time
	LastSeen       time.Time
}

// Store provides read/write access to recognition totals.
type Store interface {
	// Record counts one accepted recognition.
	Record(ctx context.Context, r model.Recognition) error

	// Get returns the totals and rank of identity.
	// Returns ErrNotFound if the identity was never recognized.
	Get(ctx context.Context, identity string) (Entry, error)

	// TopN returns the n most recognized identities, count desc then identity asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of identities tracked.
	Count(ctx context.Context) int
}
