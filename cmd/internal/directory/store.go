// Package directory maps usernames to stable account identifiers.
//
// The ledger engine and session manager consume account ids resolved here but
// do not own the mapping. Credentials are out of scope: the directory stores
// no passwords.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a username resolves to no account.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists is returned when a username is already taken.
	ErrAlreadyExists = errors.New("username already exists")
)

// Account is the directory's view of an account: a stable id and its username.
type Account struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Store abstracts the username -> account id lookup.
type Store interface {
	// Resolve returns the account id for a username, or ErrNotFound.
	Resolve(ctx context.Context, username string) (string, error)

	// CreateAccount registers a new account and bootstraps its zero balance
	// in one atomic unit. Returns ErrAlreadyExists on a duplicate username.
	CreateAccount(ctx context.Context, username string) (string, error)
}
