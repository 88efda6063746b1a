// Package history keeps a bounded window of emotion samples and their trailing averages.
package history

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/behavior/internal/domain/model"
)

const defaultCapacity = 20

// History is a fixed-capacity ring of entries in arrival order.
// Appending to a full ring drops the oldest entry.
type History struct {
	mu      sync.RWMutex
	entries []model.HistoryEntry
	start   int
	size    int
}

// New creates a history holding at most capacity entries.
func New(capacity int) *History {
	if capacity < 1 {
		capacity = defaultCapacity
	}
	return &History{entries: make([]model.HistoryEntry, capacity)}
}

// Append adds a sample. The scores are copied.
func (h *History) Append(at time.Time, scores model.EmotionScores, dominant model.Emotion) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := model.HistoryEntry{At: at, Scores: scores.Clone(), Dominant: dominant}
	if h.size < len(h.entries) {
		h.entries[(h.start+h.size)%len(h.entries)] = e
		h.size++
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % len(h.entries)
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.entries)
}

// Entries returns copies of the retained entries, oldest first.
func (h *History) Entries() []model.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.HistoryEntry, h.size)
	for i := 0; i < h.size; i++ {
		e := h.entries[(h.start+i)%len(h.entries)]
		e.Scores = e.Scores.Clone()
		out[i] = e
	}
	return out
}

// Since returns entries strictly after t, oldest first.
func (h *History) Since(t time.Time) []model.HistoryEntry {
	all := h.Entries()
	for i, e := range all {
		if e.At.After(t) {
			return all[i:]
		}
	}
	return nil
}

// Averages returns the arithmetic mean per label over the retained window,
// recomputed from scratch. Missing labels count as 0. Nil when empty.
func (h *History) Averages() model.EmotionScores {
	entries := h.Entries()
	if len(entries) == 0 {
		return nil
	}

	col := make([]float64, len(entries))
	out := make(model.EmotionScores, len(model.Labels))
	for _, l := range model.Labels {
		for i, e := range entries {
			col[i] = e.Scores.Get(l)
		}
		out[l] = stat.Mean(col, nil)
	}
	return out
}

// Reset drops every entry.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.entries {
		h.entries[i] = model.HistoryEntry{}
	}
	h.start, h.size = 0, 0
}
