package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction record.
type Kind string

const (
	KindDeposit  Kind = "DEPOSIT"
	KindWithdraw Kind = "WITHDRAW"
	KindTransfer Kind = "TRANSFER"
)

// Transaction is an immutable ledger record. From is nil for pure deposits,
// To is nil for pure withdrawals; transfers carry both. Records are append-only
// and never updated or deleted.
type Transaction struct {
	ID        string
	From      *string
	To        *string
	Amount    decimal.Decimal
	Kind      Kind
	CreatedAt time.Time
}

// Store abstracts balance persistence. Implementations must provide row-level
// exclusive locking with commit/rollback semantics.
type Store interface {
	// Begin opens an atomic unit. Everything done through the returned Tx is
	// all-or-nothing: either the commit makes every balance write and record
	// append visible, or none of them.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic ledger unit. Locks acquired through it are held until
// Commit or Rollback.
//
// Lock acquisition must block (not spin) until the lock is available, bounded
// by the store's lock-wait timeout, after which the call fails with
// ErrUnavailable rather than hanging forever.
type Tx interface {
	// BalanceForUpdate acquires an exclusive lock on the account's balance row
	// and returns the current balance. Fails with ErrAccountNotFound if the
	// account has no balance record.
	BalanceForUpdate(ctx context.Context, accountID string) (decimal.Decimal, error)

	// LockPairForUpdate locks two accounts' rows in a single call, always
	// acquiring in ascending identifier order regardless of argument order.
	// Returns the balances in argument order.
	LockPairForUpdate(ctx context.Context, idA, idB string) (decimal.Decimal, decimal.Decimal, error)

	// SetBalance writes a new balance. Must be called while holding the lock
	// from a paired BalanceForUpdate/LockPairForUpdate. A row that vanished
	// under the lock is ErrInvariant.
	SetBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error

	// AppendTransaction appends an immutable record in the same atomic unit
	// and returns its ID.
	AppendTransaction(ctx context.Context, rec Transaction) (string, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
