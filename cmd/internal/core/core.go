// Package core composes the account directory, ledger engine, and session
// manager behind the surface consumed by the (external) command layer.
//
// The engine and manager share no internal state; they meet only here, in the
// caller. All construction is explicit dependency injection: no package-level
// singletons.
package core

import (
	"context"
	"fmt"

	"teller/cmd/internal/auth/session"
	"teller/cmd/internal/directory"
	"teller/cmd/internal/ledger"

	"github.com/shopspring/decimal"
)

// Core is the facade over the three owned collaborators.
type Core struct {
	dir      directory.Store
	engine   *ledger.Engine
	sessions *session.Manager
}

// New constructs a Core from its collaborators.
func New(dir directory.Store, engine *ledger.Engine, sessions *session.Manager) (*Core, error) {
	if dir == nil || engine == nil || sessions == nil {
		return nil, fmt.Errorf("core: nil collaborator")
	}
	return &Core{dir: dir, engine: engine, sessions: sessions}, nil
}

// ResolveAccount maps a username to its stable account id.
func (c *Core) ResolveAccount(ctx context.Context, username string) (string, error) {
	return c.dir.Resolve(ctx, username)
}

// CreateAccount registers a new account with a zero balance.
func (c *Core) CreateAccount(ctx context.Context, username string) (string, error) {
	return c.dir.CreateAccount(ctx, username)
}

// Deposit credits an account and returns the transaction record id.
func (c *Core) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (string, error) {
	return c.engine.Deposit(ctx, accountID, amount)
}

// Withdraw debits an account and returns the transaction record id.
func (c *Core) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (string, error) {
	return c.engine.Withdraw(ctx, accountID, amount)
}

// Transfer moves funds between two accounts and returns the transaction
// record id.
func (c *Core) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (string, error) {
	return c.engine.Transfer(ctx, fromID, toID, amount)
}

// GetBalance returns an account's committed balance.
func (c *Core) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return c.engine.Balance(ctx, accountID)
}

// CreateSession starts a session for the account, superseding any prior one.
func (c *Core) CreateSession(ctx context.Context, accountID string) (string, error) {
	return c.sessions.CreateSession(ctx, accountID)
}

// ValidateSession validates a session id, refreshing its deadline on success.
func (c *Core) ValidateSession(ctx context.Context, sessionID string) (session.Session, error) {
	return c.sessions.Validate(ctx, sessionID)
}

// CheckActiveSession reports whether the account has a live session. This is
// the validating check: it refreshes or expires the session it inspects.
func (c *Core) CheckActiveSession(ctx context.Context, accountID string) (bool, error) {
	return c.sessions.CheckActive(ctx, accountID)
}

// TerminateSession deletes a session; idempotent.
func (c *Core) TerminateSession(ctx context.Context, sessionID string) error {
	return c.sessions.Terminate(ctx, sessionID)
}
