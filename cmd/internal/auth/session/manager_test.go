package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore, *fakeClock) {
	t.Helper()

	store := NewMemoryStore()
	clock := newFakeClock()
	mgr, err := NewManager(DefaultConfig(), store, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr, store, clock
}

func TestManager_ValidateRefreshesDeadline(t *testing.T) {
	t.Parallel()

	mgr, _, clock := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 40s into a 1m idle window: still live, and validation pushes the
	// deadline out another full minute.
	clock.Advance(40 * time.Second)
	sess, err := mgr.Validate(ctx, id)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !sess.ExpiresAt.Equal(clock.Now().Add(1 * time.Minute)) {
		t.Fatalf("deadline not refreshed: %s", sess.ExpiresAt)
	}

	// Another 40s: past the original deadline but within the refreshed one.
	clock.Advance(40 * time.Second)
	if _, err := mgr.Validate(ctx, id); err != nil {
		t.Fatalf("validate after refresh: %v", err)
	}
}

func TestManager_ValidateEmptyAndUnknownID(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Validate(ctx, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("empty id: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := mgr.Validate(ctx, "01AAAAAAAAAAAAAAAAAAAAAAAA"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown id: expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_IdleExpiryDeletesOnValidate(t *testing.T) {
	t.Parallel()

	mgr, store, clock := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.Advance(61 * time.Second)

	if _, err := mgr.Validate(ctx, id); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// The expired session was deleted as a side effect; the id is permanently
	// invalid (no resurrection).
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session not deleted: %v", err)
	}
	if _, err := mgr.Validate(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second validate: expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_LazyExpiryLeavesUntouchedRows(t *testing.T) {
	t.Parallel()

	mgr, store, clock := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Long past expiry, but never validated: no background sweep exists, so
	// the row is still in storage. This is the documented trade-off.
	clock.Advance(24 * time.Hour)

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("expired-but-untouched row should still exist: %v", err)
	}
	if !sess.Expired(clock.Now()) {
		t.Fatalf("session should be past its deadline")
	}
}

func TestManager_CreateSupersedesPriorSession(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	oldID, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create old: %v", err)
	}
	newID, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create new: %v", err)
	}
	if oldID == newID {
		t.Fatalf("expected distinct session ids")
	}

	if _, err := mgr.Validate(ctx, oldID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("superseded session still validates: %v", err)
	}
	if _, err := mgr.Validate(ctx, newID); err != nil {
		t.Fatalf("new session: %v", err)
	}
}

func TestManager_CheckActiveIsValidating(t *testing.T) {
	t.Parallel()

	mgr, store, clock := newTestManager(t)
	ctx := context.Background()

	active, err := mgr.CheckActive(ctx, "acct-a")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if active {
		t.Fatalf("no session yet; expected inactive")
	}

	id, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A live session: the check reports active AND refreshes the deadline.
	clock.Advance(30 * time.Second)
	active, err = mgr.CheckActive(ctx, "acct-a")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !active {
		t.Fatalf("expected active session")
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !sess.ExpiresAt.Equal(clock.Now().Add(1 * time.Minute)) {
		t.Fatalf("check did not refresh deadline: %s", sess.ExpiresAt)
	}

	// An expired session: the check reports inactive AND deletes the row.
	clock.Advance(2 * time.Minute)
	active, err = mgr.CheckActive(ctx, "acct-a")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if active {
		t.Fatalf("expected expired session to be inactive")
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("check did not delete expired session: %v", err)
	}
}

func TestManager_TerminateIsIdempotent(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.CreateSession(ctx, "acct-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := mgr.Terminate(ctx, id); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := mgr.Terminate(ctx, id); err != nil {
		t.Fatalf("second terminate must not error: %v", err)
	}
	if _, err := mgr.Validate(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("terminated session still validates: %v", err)
	}
}
