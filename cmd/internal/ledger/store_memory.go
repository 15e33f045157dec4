package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"teller/cmd/internal/ids"

	"github.com/shopspring/decimal"
)

// MemoryStore is the in-memory Store used when no database is configured and
// by unit tests. It reproduces the Postgres locking discipline: per-account
// exclusive locks acquired in ascending identifier order, blocking with a
// bounded wait, and all-or-nothing commits.
type MemoryStore struct {
	mu          sync.Mutex
	accounts    map[string]*memAccount
	records     []Transaction
	lockTimeout time.Duration
}

type memAccount struct {
	// lock is a one-slot channel: a full slot means the row is locked.
	// Channel acquisition gives blocking-with-timeout semantics for free.
	lock    chan struct{}
	balance decimal.Decimal
	updated time.Time
}

// MemoryOption configures the store.
type MemoryOption func(*MemoryStore)

// WithMemoryLockTimeout bounds lock waits (default 3s).
func WithMemoryLockTimeout(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewMemoryStore constructs an empty in-memory balance store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		accounts:    make(map[string]*memAccount),
		lockTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateBalance registers a zero balance row for a new account.
// It is the memory counterpart of InitBalance.
func (s *MemoryStore) CreateBalance(accountID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; ok {
		return
	}
	s.accounts[accountID] = &memAccount{
		lock:    make(chan struct{}, 1),
		balance: decimal.Zero,
		updated: now,
	}
}

// Records returns a snapshot of all appended transaction records (test aid).
func (s *MemoryStore) Records() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transaction(nil), s.records...)
}

// Begin opens an atomic unit over the in-memory state.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{
		store:  s,
		held:   make(map[string]*memAccount),
		staged: make(map[string]decimal.Decimal),
	}, nil
}

type memTx struct {
	store     *MemoryStore
	held      map[string]*memAccount
	heldOrder []string
	staged    map[string]decimal.Decimal
	stagedRec []Transaction
	updatedAt time.Time
	done      bool
}

// acquire blocks until the account lock is available, the wait times out, or
// ctx is cancelled. Re-acquiring a lock already held by this unit is a no-op.
func (t *memTx) acquire(ctx context.Context, op, accountID string) (*memAccount, error) {
	if a, ok := t.held[accountID]; ok {
		return a, nil
	}

	t.store.mu.Lock()
	a, ok := t.store.accounts[accountID]
	t.store.mu.Unlock()
	if !ok {
		return nil, opErr(op, ErrAccountNotFound, accountID)
	}

	timer := time.NewTimer(t.store.lockTimeout)
	defer timer.Stop()

	select {
	case a.lock <- struct{}{}:
	case <-timer.C:
		return nil, opErr(op, ErrUnavailable, "lock timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t.held[accountID] = a
	t.heldOrder = append(t.heldOrder, accountID)
	return a, nil
}

func (t *memTx) balanceOf(accountID string, a *memAccount) decimal.Decimal {
	if staged, ok := t.staged[accountID]; ok {
		return staged
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return a.balance
}

func (t *memTx) BalanceForUpdate(ctx context.Context, accountID string) (decimal.Decimal, error) {
	a, err := t.acquire(ctx, "ledger.BalanceForUpdate", accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.balanceOf(accountID, a), nil
}

func (t *memTx) LockPairForUpdate(ctx context.Context, idA, idB string) (decimal.Decimal, decimal.Decimal, error) {
	const op = "ledger.LockPairForUpdate"

	// Ascending identifier order, regardless of argument order.
	ordered := []string{idA, idB}
	sort.Strings(ordered)

	accts := make(map[string]*memAccount, 2)
	for _, id := range ordered {
		a, err := t.acquire(ctx, op, id)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		accts[id] = a
	}

	return t.balanceOf(idA, accts[idA]), t.balanceOf(idB, accts[idB]), nil
}

func (t *memTx) SetBalance(_ context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	const op = "ledger.SetBalance"

	if _, ok := t.held[accountID]; !ok {
		return opErr(op, ErrInvariant, "set balance without lock: "+accountID)
	}
	t.staged[accountID] = balance
	t.updatedAt = now
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, rec Transaction) (string, error) {
	const op = "ledger.AppendTransaction"

	if rec.ID == "" {
		id, err := ids.NewULID(rec.CreatedAt)
		if err != nil {
			return "", opErr(op, ErrUnavailable, err.Error())
		}
		rec.ID = id
	}
	t.stagedRec = append(t.stagedRec, rec)
	return rec.ID, nil
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	for id, bal := range t.staged {
		a := t.held[id]
		a.balance = bal
		a.updated = t.updatedAt
	}
	t.store.records = append(t.store.records, t.stagedRec...)
	t.store.mu.Unlock()

	t.release()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) release() {
	// Release in reverse acquisition order.
	for i := len(t.heldOrder) - 1; i >= 0; i-- {
		<-t.held[t.heldOrder[i]].lock
	}
	t.held = nil
	t.heldOrder = nil
	t.staged = nil
	t.stagedRec = nil
}
