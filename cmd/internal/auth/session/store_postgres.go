package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"teller/cmd/internal/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL.
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the session store (default "teller").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "teller"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

// EnsureSchema creates the sessions table if missing.
// The accounts table must exist first (directory.PostgresStore.EnsureSchema).
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.sessions (
				id               TEXT PRIMARY KEY,
				account_id       TEXT NOT NULL REFERENCES %s.accounts(id) ON DELETE CASCADE,
				created_at       TIMESTAMPTZ NOT NULL,
				last_activity_at TIMESTAMPTZ NOT NULL,
				expires_at       TIMESTAMPTZ NOT NULL
			)`, s.schema, s.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_sessions_account_id
			ON %s.sessions (account_id, created_at DESC)`, s.schema),
	}
	for _, q := range ddl {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Create deletes any prior sessions for the account and inserts a fresh one,
// both inside a single transaction.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, accountID string, expiresAt time.Time) (string, error) {
	id, err := ids.NewULID(now)
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		DELETE FROM %s.sessions WHERE account_id = $1
	`, s.schema), accountID); err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.sessions (id, account_id, created_at, last_activity_at, expires_at)
		VALUES ($1, $2, $3, $3, $4)
	`, s.schema), id, accountID, now, expiresAt); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads a session row by id.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Session, error) {
	var row Session
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, account_id, created_at, last_activity_at, expires_at
		FROM %s.sessions
		WHERE id = $1
	`, s.schema), sessionID).Scan(
		&row.ID,
		&row.AccountID,
		&row.CreatedAt,
		&row.LastActivityAt,
		&row.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return row, nil
}

// GetActiveForAccount returns the most recently created session for the
// account. Expiry is judged by the caller.
func (s *PostgresStore) GetActiveForAccount(ctx context.Context, accountID string) (Session, error) {
	var row Session
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, account_id, created_at, last_activity_at, expires_at
		FROM %s.sessions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, s.schema), accountID).Scan(
		&row.ID,
		&row.AccountID,
		&row.CreatedAt,
		&row.LastActivityAt,
		&row.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return row, nil
}

// Touch refreshes the activity timestamp and deadline. A session that no
// longer exists is not an error.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s.sessions
		SET last_activity_at = $2, expires_at = $3
		WHERE id = $1
	`, s.schema), sessionID, now, expiresAt)
	return err
}

// Delete removes a session (idempotent).
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		DELETE FROM %s.sessions WHERE id = $1
	`, s.schema), sessionID)
	return err
}
