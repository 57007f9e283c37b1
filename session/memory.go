package session

import (
	"context"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStore constructs an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// compile-time assertion that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Load(ctx context.Context) (Session, error) {
	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return Session{}, ErrNoSession
	}
	return *s.session, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess Session) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &sess
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	return nil
}
