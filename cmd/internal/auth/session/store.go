package session

import (
	"context"
	"time"
)

// Session is one time-bounded authorization grant for an account.
// ExpiresAt is always LastActivityAt plus the configured idle timeout.
type Session struct {
	ID             string
	AccountID      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the session's deadline has passed at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Store abstracts session persistence.
//
// Stores do not judge expiry: GetActiveForAccount returns the most recently
// created session whether or not it has expired, and the Manager decides what
// to do with it.
type Store interface {
	// Create first deletes any existing session(s) for the account, then
	// inserts one fresh session with last-activity-at = now and the given
	// deadline. Both steps are one atomic unit.
	Create(ctx context.Context, now time.Time, accountID string, expiresAt time.Time) (string, error)

	// Get loads a session by id. Returns ErrSessionNotFound when absent.
	Get(ctx context.Context, sessionID string) (Session, error)

	// GetActiveForAccount returns the most recently created session for the
	// account, not filtered by expiry. Returns ErrSessionNotFound when the
	// account has no session at all.
	GetActiveForAccount(ctx context.Context, accountID string) (Session, error)

	// Touch refreshes last-activity-at to now and the deadline to expiresAt.
	// Silently does nothing if the session no longer exists.
	Touch(ctx context.Context, now time.Time, sessionID string, expiresAt time.Time) error

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
