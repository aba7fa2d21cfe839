// Package state holds the in-memory source of truth for per-node telemetry:
// the latest accepted reading and a bounded rolling history per node.
package state

import (
	"sync"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
)

// DefaultHistoryLimit is the per-node rolling window size.
const DefaultHistoryLimit = 500

// Store maps node identities to their latest reading and history window.
// A single store-level RWMutex serializes mutations; concurrent upserts to
// the same key commit in lock-acquisition order with no lost samples. Node
// records are created lazily on first sight and never destroyed.
type Store struct {
	mu           sync.RWMutex
	nodes        map[domain.NodeKey]*nodeRecord
	historyLimit int
}

// nodeRecord is the store-private mutable record; readers only ever see
// copies.
type nodeRecord struct {
	latest  domain.Reading
	derived domain.DerivedMetrics
	history []domain.HistorySample
}

// NewStore creates an empty store. A historyLimit of zero or below falls
// back to DefaultHistoryLimit.
func NewStore(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		nodes:        make(map[domain.NodeKey]*nodeRecord),
		historyLimit: historyLimit,
	}
}

// Upsert records a newly accepted reading for its node: replaces the latest
// view and appends a compact sample to the history window, evicting the
// oldest sample first when the window is full. The size invariant
// len(history) <= limit holds whenever Upsert returns.
func (s *Store) Upsert(r domain.Reading, d domain.DerivedMetrics) {
	sample := domain.ToHistorySample(r, d)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nodes[r.Key()]
	if !ok {
		rec = &nodeRecord{history: make([]domain.HistorySample, 0, s.historyLimit)}
		s.nodes[r.Key()] = rec
	}

	rec.latest = r
	rec.derived = d

	if len(rec.history) == s.historyLimit {
		copy(rec.history, rec.history[1:])
		rec.history[len(rec.history)-1] = sample
		return
	}
	rec.history = append(rec.history, sample)
}

// Latest returns a copy of the node's record, or false if the node has never
// reported.
func (s *Store) Latest(key domain.NodeKey) (domain.NodeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.nodes[key]
	if !ok {
		return domain.NodeRecord{}, false
	}
	return rec.export(), true
}

// Snapshot returns a copy of every node record, keyed by "zone/node".
func (s *Store) Snapshot() map[string]domain.NodeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.NodeRecord, len(s.nodes))
	for key, rec := range s.nodes {
		out[key.String()] = rec.export()
	}
	return out
}

// Len reports the number of nodes seen so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// export copies the record so callers can never alias store-owned state.
// Callers must hold at least the read lock.
func (r *nodeRecord) export() domain.NodeRecord {
	history := make([]domain.HistorySample, len(r.history))
	copy(history, r.history)
	return domain.NodeRecord{
		Latest:  r.latest,
		Derived: r.derived,
		History: history,
	}
}
