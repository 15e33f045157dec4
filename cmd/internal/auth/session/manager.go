package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Manager implements the session lifecycle: create (supersede), validate
// (lazy expiry + activity refresh), the validating activity check, and
// idempotent termination.
//
// State machine per session:
//
//	Active -> Active      validate within the idle window (deadline refreshed)
//	Active -> Terminated  explicit termination, or superseded by a new create
//	Active -> Expired -> Terminated
//	                      validate after the idle window: the row is deleted
//	                      as a side effect of the failing validation
//
// There is no resurrection: a terminated or expired id is permanently invalid.
type Manager struct {
	cfg   Config
	store Store
	log   *slog.Logger
	clock func() time.Time
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewManager constructs a Manager over the given store.
func NewManager(cfg Config, store Store, log *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session: nil store")
	}
	if cfg.IdleTimeout <= 0 {
		return nil, ErrConfig
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		cfg:   cfg,
		store: store,
		log:   log,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// CreateSession creates a fresh session for the account, unconditionally
// superseding any prior session. The single-active-session invariant holds by
// construction: the old row is deleted before the new one is inserted.
func (m *Manager) CreateSession(ctx context.Context, accountID string) (string, error) {
	now := m.clock()
	id, err := m.store.Create(ctx, now, accountID, now.Add(m.cfg.IdleTimeout))
	if err != nil {
		return "", err
	}
	m.log.Info("session.created", "account", accountID, "session", id)
	return id, nil
}

// Validate checks a session id and refreshes its activity deadline.
//
// Not a pure read: a live session gets its deadline pushed to now + idle
// timeout; an expired session is deleted and ErrSessionExpired returned. An
// empty or unknown id is ErrSessionNotFound.
func (m *Manager) Validate(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrSessionNotFound
	}

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	now := m.clock()
	if sess.Expired(now) {
		// Lazy expiry: deletion is a side effect of the failing validation.
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return Session{}, err
		}
		m.log.Info("session.expired", "session", sessionID, "account", sess.AccountID)
		return Session{}, ErrSessionExpired
	}

	deadline := now.Add(m.cfg.IdleTimeout)
	if err := m.store.Touch(ctx, now, sessionID, deadline); err != nil {
		return Session{}, err
	}

	sess.LastActivityAt = now
	sess.ExpiresAt = deadline
	return sess, nil
}

// CheckActive reports whether the account has a live session.
//
// This is a validating check, not a pure query: it delegates to Validate on
// the account's most recent session, so it refreshes a live session's deadline
// and deletes an expired one.
func (m *Manager) CheckActive(ctx context.Context, accountID string) (bool, error) {
	sess, err := m.store.GetActiveForAccount(ctx, accountID)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = m.Validate(ctx, sess.ID)
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Terminate deletes a session unconditionally. Terminating an already-gone
// session is not an error at this layer.
func (m *Manager) Terminate(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.log.Info("session.terminated", "session", sessionID)
	return nil
}
