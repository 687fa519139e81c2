package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"catalog-admin-console/internal/domain"
)

// MemoryStore implements SessionStorer in process memory. Sessions do not
// survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]domain.Session
	byOperator map[string]string
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]domain.Session),
		byOperator: make(map[string]string),
		now:        time.Now,
	}
}

func (s *MemoryStore) SaveSession(_ context.Context, session *domain.Session) (*domain.Session, error) {
	if session.Operator == "" {
		return nil, ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	saved := *session
	if existingID, ok := s.byOperator[session.Operator]; ok {
		existing := s.byID[existingID]
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		if saved.ID == "" {
			saved.ID = uuid.NewString()
		} else if _, taken := s.byID[saved.ID]; taken {
			return nil, ErrSessionExists
		}
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	s.byID[saved.ID] = saved
	s.byOperator[saved.Operator] = saved.ID

	out := saved
	return &out, nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(s.byID, id)
	delete(s.byOperator, session.Operator)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
