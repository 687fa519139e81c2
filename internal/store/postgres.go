package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"catalog-admin-console/internal/domain"
)

// Predefined errors for store operations
var (
	ErrSessionNotFound = errors.New("store: session not found")
	ErrSessionExists   = errors.New("store: session id already exists")
	ErrInvalidSession  = errors.New("store: session has no operator")
)

// PostgresStore implements SessionStorer using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
	CREATE SCHEMA IF NOT EXISTS admin;
	CREATE TABLE IF NOT EXISTS admin.sessions (
		id            UUID PRIMARY KEY,
		operator      TEXT NOT NULL UNIQUE,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		lang          TEXT NOT NULL DEFAULT 'ru',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// Migrate creates the sessions table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: Migrate failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session.Operator == "" {
		return nil, ErrInvalidSession
	}
	id := session.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `
		INSERT INTO admin.sessions (id, operator, access_token, refresh_token, lang)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (operator) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			lang = EXCLUDED.lang,
			updated_at = NOW()
		RETURNING id, operator, access_token, refresh_token, lang, created_at, updated_at;
	`
	row := s.db.QueryRowContext(ctx, query, id, session.Operator, session.AccessToken, session.RefreshToken, session.Lang)

	var saved domain.Session
	err := row.Scan(
		&saved.ID,
		&saved.Operator,
		&saved.AccessToken,
		&saved.RefreshToken,
		&saved.Lang,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // Unique violation on the primary key
			return nil, ErrSessionExists
		}
		return nil, fmt.Errorf("store: SaveSession failed to scan row: %w", err)
	}
	return &saved, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	query := `
		SELECT id, operator, access_token, refresh_token, lang, created_at, updated_at
		FROM admin.sessions
		WHERE id = $1;
	`
	var session domain.Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Operator,
		&session.AccessToken,
		&session.RefreshToken,
		&session.Lang,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("store: GetSession failed: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrSessionNotFound
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM admin.sessions WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("store: DeleteSession failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteSession failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
