package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// minUnit is the system's minimum unit of transfer: every amount must be
// strictly greater than 1, not merely positive. The rule is enforced
// identically for deposit, withdraw, and transfer.
var minUnit = decimal.NewFromInt(1)

// maxScale is the fixed-point scale of all balances and amounts.
const maxScale = 4

// Engine validates and applies ledger operations against a Store.
//
// Every operation is one atomic unit: balance writes and the transaction
// record append commit together or not at all. Balances read outside the lock
// are never trusted for a write decision; sufficiency is always re-checked
// under the lock.
type Engine struct {
	store Store
	log   *slog.Logger
	clock func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs an Engine over the given store.
func NewEngine(store Store, log *slog.Logger, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		store: store,
		log:   log,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// validAmount enforces the minimum-unit and scale rules shared by all
// mutating operations.
func validAmount(op string, amount decimal.Decimal) error {
	if amount.Exponent() < -maxScale {
		return opErr(op, ErrInvalidAmount, "more than 4 fractional digits")
	}
	if amount.Cmp(minUnit) <= 0 {
		return opErr(op, ErrInvalidAmount, "must be greater than 1")
	}
	return nil
}

// Deposit credits the account and appends a Deposit record.
// There is no upper bound on the resulting balance.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (txnID string, err error) {
	const op = "ledger.Deposit"
	defer func() { observe("deposit", err) }()

	if err = validAmount(op, amount); err != nil {
		return "", err
	}

	now := e.clock()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	bal, err := tx.BalanceForUpdate(ctx, accountID)
	if err != nil {
		return "", err
	}

	if err = tx.SetBalance(ctx, accountID, bal.Add(amount), now); err != nil {
		return "", err
	}

	txnID, err = tx.AppendTransaction(ctx, Transaction{
		To:        &accountID,
		Amount:    amount,
		Kind:      KindDeposit,
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}

	e.log.Info("ledger.deposit", "account", accountID, "amount", amount.StringFixed(maxScale), "txn", txnID)
	return txnID, nil
}

// Withdraw debits the account and appends a Withdraw record. The balance is
// re-read under the lock; a pre-check done by the caller is advisory only.
func (e *Engine) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (txnID string, err error) {
	const op = "ledger.Withdraw"
	defer func() { observe("withdraw", err) }()

	if err = validAmount(op, amount); err != nil {
		return "", err
	}

	now := e.clock()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	bal, err := tx.BalanceForUpdate(ctx, accountID)
	if err != nil {
		return "", err
	}

	if bal.Cmp(amount) < 0 {
		return "", opErr(op, ErrInsufficientFunds,
			fmt.Sprintf("available %s, requested %s", bal.StringFixed(maxScale), amount.StringFixed(maxScale)))
	}

	if err = tx.SetBalance(ctx, accountID, bal.Sub(amount), now); err != nil {
		return "", err
	}

	txnID, err = tx.AppendTransaction(ctx, Transaction{
		From:      &accountID,
		Amount:    amount,
		Kind:      KindWithdraw,
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}

	e.log.Info("ledger.withdraw", "account", accountID, "amount", amount.StringFixed(maxScale), "txn", txnID)
	return txnID, nil
}

// Transfer moves funds between two distinct accounts, locking both balance
// rows in ascending identifier order so opposing concurrent transfers cannot
// deadlock. Debit, credit, and the single Transfer record commit as one unit.
func (e *Engine) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (txnID string, err error) {
	const op = "ledger.Transfer"
	defer func() { observe("transfer", err) }()

	if err = validAmount(op, amount); err != nil {
		return "", err
	}
	if fromID == toID {
		return "", opErr(op, ErrSameAccount, fromID)
	}

	now := e.clock()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fromBal, toBal, err := tx.LockPairForUpdate(ctx, fromID, toID)
	if err != nil {
		return "", err
	}

	// Authoritative sufficiency check, under the lock.
	if fromBal.Cmp(amount) < 0 {
		return "", opErr(op, ErrInsufficientFunds,
			fmt.Sprintf("available %s, requested %s", fromBal.StringFixed(maxScale), amount.StringFixed(maxScale)))
	}

	if err = tx.SetBalance(ctx, fromID, fromBal.Sub(amount), now); err != nil {
		return "", err
	}
	if err = tx.SetBalance(ctx, toID, toBal.Add(amount), now); err != nil {
		return "", err
	}

	txnID, err = tx.AppendTransaction(ctx, Transaction{
		From:      &fromID,
		To:        &toID,
		Amount:    amount,
		Kind:      KindTransfer,
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}

	e.log.Info("ledger.transfer", "from", fromID, "to", toID, "amount", amount.StringFixed(maxScale), "txn", txnID)
	return txnID, nil
}

// Balance returns the current committed balance for an account.
func (e *Engine) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	bal, err := tx.BalanceForUpdate(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return bal, nil
}
