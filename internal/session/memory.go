package session

import (
	"context"
	"sync"
	"time"
)

const memorySweepInterval = time.Minute

// MemoryStore keeps sessions in process memory. Carts held here are lost on
// restart, so it is meant for development and single-instance deployments.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*memoryEntry
	lastSweep time.Time
	now       func() time.Time
}

type memoryEntry struct {
	data      *Data
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	entry, ok := s.sessions[key]
	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	return cloneData(entry.data), true
}

// Set stores a copy of data, so later mutations by the caller are not visible
// until the next Set.
func (s *MemoryStore) Set(_ context.Context, key string, data *Data, ttl time.Duration) {
	if key == "" || data == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.sessions[key] = &memoryEntry{
		data:      cloneData(data),
		expiresAt: now.Add(ttl),
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
}

// Len reports the number of stored sessions, expired ones included until the
// next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < memorySweepInterval {
		return
	}
	s.lastSweep = now
	for key, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, key)
		}
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
