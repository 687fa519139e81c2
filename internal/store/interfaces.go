package store

import (
	"context"

	"catalog-admin-console/internal/domain"
)

// SessionStorer defines the persistence operations for operator sessions.
type SessionStorer interface {
	// SaveSession inserts or replaces the session of session.Operator. A new
	// session gets a fresh id; the stored id, created_at and updated_at are
	// written back.
	SaveSession(ctx context.Context, session *domain.Session) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}
