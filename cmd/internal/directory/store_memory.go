package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"teller/cmd/internal/ids"
	"teller/cmd/internal/ledger"
)

// MemoryStore is the in-memory Store used when no database is configured and
// by unit tests. Account creation bootstraps the zero balance in the paired
// ledger store, mirroring the Postgres transaction.
type MemoryStore struct {
	mu       sync.Mutex
	byName   map[string]Account
	balances *ledger.MemoryStore
}

// NewMemoryStore constructs a directory bound to the given ledger store.
func NewMemoryStore(balances *ledger.MemoryStore) *MemoryStore {
	return &MemoryStore{
		byName:   make(map[string]Account),
		balances: balances,
	}
}

// Resolve returns the account id for a username.
func (s *MemoryStore) Resolve(_ context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byName[username]
	if !ok {
		return "", ErrNotFound
	}
	return acct.ID, nil
}

// CreateAccount registers the account and its zero balance.
func (s *MemoryStore) CreateAccount(_ context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("directory: empty username")
	}

	now := time.Now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[username]; ok {
		return "", ErrAlreadyExists
	}
	s.byName[username] = Account{ID: id, Username: username, CreatedAt: now}
	if s.balances != nil {
		s.balances.CreateBalance(id, now)
	}
	return id, nil
}
