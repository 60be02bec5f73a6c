package session

import (
	"context"
	"sync"
	"time"

	"commerce3d/api/internal/auth"
)

// MemoryStore keeps sessions for the lifetime of the process. A restart
// forces every admin to log in again.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	newToken func() (string, error)
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]Entry),
		newToken: auth.NewToken,
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, identity string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		if _, taken := s.entries[token]; taken {
			continue
		}
		s.entries[token] = Entry{Identity: identity, CreatedAt: s.now()}
		return token, nil
	}
	return "", ErrTokenSpace
}

func (s *MemoryStore) Validate(_ context.Context, token string) (Entry, bool, error) {
	if token == "" {
		return Entry{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[token]
	return entry, ok, nil
}

func (s *MemoryStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
