package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention bounds how long an idle entry survives a sweep.
const DefaultRetention = time.Hour

type entry struct {
	count       int
	windowStart time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	retention time.Duration
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithRetention(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.retention = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:   make(map[string]entry),
		now:       time.Now,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Hit(_ context.Context, identifier string, p Policy) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	e, res, write := decide(e, ok, now, p)
	if write {
		s.entries[identifier] = e
	}
	return res, nil
}

// Sweep drops entries whose window started before now-retention and
// returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if e.windowStart.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) count(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[identifier].count
}
