// internal/cache/cache.go

// Package cache memoizes aggregation results per identity for a freshness window.
package cache

import (
	"slices"
	"sync"
	"time"

	"github-loc-stats/internal/model"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = time.Hour

// Entry is a stored aggregation result.
type Entry struct {
	Result   model.AggregateResult
	StoredAt time.Time
}

// Store is a process-wide in-memory map of aggregation results keyed by identity.
// Expired entries are ignored on read and replaced on the next write; nothing
// is evicted in the background and nothing survives a restart.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store with the given freshness window.
func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the freshness window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the result stored for identity and its age, provided the entry
// is younger than the freshness window.
func (s *Store) Get(identity model.Identity) (model.AggregateResult, time.Duration, bool) {
	s.mu.RLock()
	entry, ok := s.entries[identity.Key()]
	s.mu.RUnlock()
	if !ok {
		return model.AggregateResult{}, 0, false
	}

	age := s.now().Sub(entry.StoredAt)
	if age >= s.ttl {
		return model.AggregateResult{}, 0, false
	}
	return clone(entry.Result), age, true
}

// Put stores result for identity, overwriting any previous entry.
func (s *Store) Put(identity model.Identity, result model.AggregateResult) {
	entry := Entry{
		Result:   clone(result),
		StoredAt: s.now(),
	}

	s.mu.Lock()
	s.entries[identity.Key()] = entry
	s.mu.Unlock()
}

// clone copies the per-repository slice so callers never share it with the store.
func clone(r model.AggregateResult) model.AggregateResult {
	r.RepositoryResults = slices.Clone(r.RepositoryResults)
	return r
}
