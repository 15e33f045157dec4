package session

import (
	"context"
	"sync"
	"time"

	"teller/cmd/internal/ids"
)

// MemoryStore is the in-memory Store used when no database is configured and
// by unit tests. All methods hand out value copies, never internal pointers.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session // id -> session
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create supersedes prior sessions for the account and inserts a fresh one
// under a single critical section.
func (s *MemoryStore) Create(_ context.Context, now time.Time, accountID string, expiresAt time.Time) (string, error) {
	id, err := ids.NewULID(now)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for sid, sess := range s.sessions {
		if sess.AccountID == accountID {
			delete(s.sessions, sid)
		}
	}

	s.sessions[id] = Session{
		ID:             id,
		AccountID:      accountID,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	}
	return id, nil
}

// Get loads a session by id.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// GetActiveForAccount returns the most recently created session for the
// account, not filtered by expiry.
func (s *MemoryStore) GetActiveForAccount(_ context.Context, accountID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest Session
	found := false
	for _, sess := range s.sessions {
		if sess.AccountID != accountID {
			continue
		}
		if !found || sess.CreatedAt.After(latest.CreatedAt) ||
			(sess.CreatedAt.Equal(latest.CreatedAt) && sess.ID > latest.ID) {
			latest = sess
			found = true
		}
	}
	if !found {
		return Session{}, ErrSessionNotFound
	}
	return latest, nil
}

// Touch refreshes the activity timestamp and deadline; a missing session is a no-op.
func (s *MemoryStore) Touch(_ context.Context, now time.Time, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.LastActivityAt = now
	sess.ExpiresAt = expiresAt
	s.sessions[sessionID] = sess
	return nil
}

// Delete removes a session (idempotent).
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
