package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: count DESC, then identity ASC. In-order traversal yields the
// most recognized identities first.

type record struct {
	count     uint64
	best      float64
	firstSeen time.Time
	lastSeen  time.Time
}

type node struct {
	id    string
	count uint64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aCount, aID) ranks before (bCount, bID).
func less(aCount uint64, aID string, bCount uint64, bID string) bool {
	if aCount != bCount {
		return aCount > bCount
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, in *node) *node {
	if n == nil {
		in.size = 1
		return in
	}
	if less(in.count, in.id, n.count, n.id) {
		n.left = insert(n.left, in)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, in)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// remove detaches the node keyed (id, count) and returns the new root and the node.
func remove(n *node, id string, count uint64) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	var found *node
	switch {
	case n.id == id && n.count == count:
		if n.left == nil {
			found, n = n, n.right
			found.right = nil
			return n, found
		}
		if n.right == nil {
			found, n = n, n.left
			found.left = nil
			return n, found
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right, found = remove(n.right, id, count)
		} else {
			n = rotateLeft(n)
			n.left, found = remove(n.left, id, count)
		}
	case less(count, id, n.count, n.id):
		n.left, found = remove(n.left, id, count)
	default:
		n.right, found = remove(n.right, id, count)
	}
	fix(n)
	return n, found
}

// rank returns the 1-based in-order position of (id, count).
func rank(n *node, id string, count uint64) int {
	r := 0
	for n != nil {
		switch {
		case n.id == id && n.count == count:
			return r + nsize(n.left) + 1
		case less(count, id, n.count, n.id):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore is an in-memory Store ordered by recognition count.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]*record
	seed uint64
	rnd  *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]*record),
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rnd = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	return s
}

// Record implements Store.Record in O(log n) expected time.
func (s *TreapStore) Record(_ context.Context, r model.Recognition) error {
	identity := r.Identity
	if identity == "" {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	rec, ok := s.byID[identity]
	var n *node
	if ok {
		s.root, n = remove(s.root, identity, rec.count)
	} else {
		rec = &record{firstSeen: r.At}
		s.byID[identity] = rec
		n = &node{id: identity, prio: s.rnd.Uint64()}
	}
	rec.count++
	rec.lastSeen = r.At
	if r.Confidence > rec.best {
		rec.best = r.Confidence
	}
	n.count = rec.count
	n.left, n.right = nil, nil
	s.root = insert(s.root, n)
	total := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateIdentitiesTracked(total)
	return nil
}

// Get returns the totals and rank of identity in O(log n) expected time.
func (s *TreapStore) Get(_ context.Context, identity string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[identity]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e := entry(identity, rec)
	e.Rank = rank(s.root, identity, rec.count)
	return e, nil
}

// TopN returns the n most recognized identities.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &nodes)

	out := make([]Entry, len(nodes))
	for i, nd := range nodes {
		out[i] = entry(nd.id, s.byID[nd.id])
		out[i].Rank = i + 1
	}
	return out, nil
}

// Count returns the number of identities tracked.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func entry(id string, rec *record) Entry {
	return Entry{
		Identity:       id,
		Count:          rec.count,
		BestConfidence: rec.best,
		FirstSeen:      rec.firstSeen,
		LastSeen:       rec.lastSeen,
	}
}
