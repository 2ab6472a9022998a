package repository

import (
	"context"
	"sync"
	"time"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// MemorySessionStateStore keeps cookie-session state in process memory. It is
// used when Redis is disabled (single-instance development) and in tests.
type MemorySessionStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state     domain.SessionState
	expiresAt time.Time
}

// NewMemorySessionStateStore creates an in-memory store with a sliding ttl.
func NewMemorySessionStateStore(ttl time.Duration) *MemorySessionStateStore {
	return &MemorySessionStateStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Load returns the state saved under id.
// Returns (nil, nil) when id is unknown or has expired.
func (s *MemorySessionStateStore) Load(_ context.Context, id string) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.After(s.now()) {
		delete(s.entries, id)
		return nil, nil
	}
	state := e.state
	return &state, nil
}

// Save stores state under id.
func (s *MemorySessionStateStore) Save(_ context.Context, id string, state domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = memoryEntry{state: state, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete removes id.
func (s *MemorySessionStateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (s *MemorySessionStateStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// StartPruning runs Prune every interval until ctx is done.
func (s *MemorySessionStateStore) StartPruning(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Prune()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// Len returns the number of stored sessions, including expired ones not yet
// dropped.
func (s *MemorySessionStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
