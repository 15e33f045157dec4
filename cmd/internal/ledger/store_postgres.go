package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"teller/cmd/internal/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Row locks come from SELECT ... FOR UPDATE inside an explicit transaction.
// - A per-transaction lock_timeout bounds lock waits; hitting it surfaces as
//   the retryable ErrUnavailable, never as a business decline.
// - Schema identifiers are validated to keep identifier interpolation safe.
type PostgresStore struct {
	pool        *pgxpool.Pool
	schema      string
	lockTimeout time.Duration
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the ledger store (default "teller").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("ledger: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithLockTimeout bounds how long a lock acquisition may block before the
// operation fails with ErrUnavailable (default 3s).
func WithLockTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) error {
		if d <= 0 {
			return fmt.Errorf("ledger: lock timeout must be positive")
		}
		s.lockTimeout = d
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:        pool,
		schema:      "teller",
		lockTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("ledger: nil pool")
	}
	return st, nil
}

// EnsureSchema creates the balance and transaction tables if missing.
// The accounts table must exist first (directory.PostgresStore.EnsureSchema).
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.balances (
				account_id   TEXT PRIMARY KEY REFERENCES %s.accounts(id) ON DELETE CASCADE,
				balance      NUMERIC(19,4) NOT NULL DEFAULT 0.0000 CHECK (balance >= 0),
				last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, s.schema, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.transactions (
				id              TEXT PRIMARY KEY,
				from_account_id TEXT REFERENCES %s.accounts(id),
				to_account_id   TEXT REFERENCES %s.accounts(id),
				amount          NUMERIC(19,4) NOT NULL CHECK (amount > 0),
				kind            TEXT NOT NULL,
				created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, s.schema, s.schema, s.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_transactions_created_at
			ON %s.transactions (created_at DESC)`, s.schema),
	}
	for _, q := range ddl {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return mapPgError("ledger.EnsureSchema", err)
		}
	}
	return nil
}

// InitBalance inserts a zero balance row for a new account within tx.
// Used by the directory's account-creation transaction.
func InitBalance(ctx context.Context, tx pgx.Tx, schema, accountID string, now time.Time) error {
	if !pgIdentRe.MatchString(schema) {
		return fmt.Errorf("ledger: invalid schema identifier")
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.balances (account_id, balance, last_updated)
		VALUES ($1, 0, $2)
	`, schema), accountID, now)
	return err
}

// Begin opens an atomic unit backed by a pgx transaction with a bounded
// lock_timeout.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	const op = "ledger.Begin"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(op, err)
	}

	// SET LOCAL scopes the lock timeout to this transaction only.
	ms := s.lockTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
		_ = tx.Rollback(ctx)
		return nil, mapPgError(op, err)
	}

	return &pgTx{tx: tx, schema: s.schema}, nil
}

type pgTx struct {
	tx     pgx.Tx
	schema string
}

func (t *pgTx) BalanceForUpdate(ctx context.Context, accountID string) (decimal.Decimal, error) {
	const op = "ledger.BalanceForUpdate"

	var raw string
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT balance::text FROM %s.balances
		WHERE account_id = $1
		FOR UPDATE
	`, t.schema), accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, opErr(op, ErrAccountNotFound, accountID)
	}
	if err != nil {
		return decimal.Zero, mapPgError(op, err)
	}

	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, opErr(op, ErrInvariant, "unparseable balance: "+raw)
	}
	return bal, nil
}

func (t *pgTx) LockPairForUpdate(ctx context.Context, idA, idB string) (decimal.Decimal, decimal.Decimal, error) {
	const op = "ledger.LockPairForUpdate"

	// ORDER BY makes Postgres take the two row locks in ascending identifier
	// order no matter which way the caller named the accounts.
	rows, err := t.tx.Query(ctx, fmt.Sprintf(`
		SELECT account_id, balance::text FROM %s.balances
		WHERE account_id IN ($1, $2)
		ORDER BY account_id
		FOR UPDATE
	`, t.schema), idA, idB)
	if err != nil {
		return decimal.Zero, decimal.Zero, mapPgError(op, err)
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal, 2)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return decimal.Zero, decimal.Zero, mapPgError(op, err)
		}
		bal, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, decimal.Zero, opErr(op, ErrInvariant, "unparseable balance: "+raw)
		}
		balances[id] = bal
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, mapPgError(op, err)
	}

	balA, okA := balances[idA]
	if !okA {
		return decimal.Zero, decimal.Zero, opErr(op, ErrAccountNotFound, idA)
	}
	balB, okB := balances[idB]
	if !okB {
		return decimal.Zero, decimal.Zero, opErr(op, ErrAccountNotFound, idB)
	}
	return balA, balB, nil
}

func (t *pgTx) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	const op = "ledger.SetBalance"

	tag, err := t.tx.Exec(ctx, fmt.Sprintf(`
		UPDATE %s.balances
		SET balance = $2, last_updated = $3
		WHERE account_id = $1
	`, t.schema), accountID, balance.StringFixed(4), now)
	if err != nil {
		return mapPgError(op, err)
	}
	if tag.RowsAffected() == 0 {
		// The row was locked by this transaction; it cannot legitimately be gone.
		return opErr(op, ErrInvariant, "locked balance row vanished: "+accountID)
	}
	return nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, rec Transaction) (string, error) {
	const op = "ledger.AppendTransaction"

	id := rec.ID
	if id == "" {
		var err error
		id, err = ids.NewULID(rec.CreatedAt)
		if err != nil {
			return "", opErr(op, ErrUnavailable, err.Error())
		}
	}

	_, err := t.tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.transactions (id, from_account_id, to_account_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.schema), id, rec.From, rec.To, rec.Amount.StringFixed(4), string(rec.Kind), rec.CreatedAt)
	if err != nil {
		return "", mapPgError(op, err)
	}
	return id, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapPgError("ledger.Commit", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return mapPgError("ledger.Rollback", err)
	}
	return nil
}

// mapPgError translates substrate failures into the error taxonomy. Lock
// timeouts, serialization failures, and deadlock aborts are retryable
// infrastructure failures; everything else passes through wrapped.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03": // lock_not_available
			return opErr(op, ErrUnavailable, "lock timeout")
		case "40001": // serialization_failure
			return opErr(op, ErrUnavailable, "serialization conflict")
		case "40P01": // deadlock_detected
			return opErr(op, ErrUnavailable, "deadlock detected")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, ErrUnavailable, "deadline exceeded")
	}
	return fmt.Errorf("%s: %w", op, err)
}
