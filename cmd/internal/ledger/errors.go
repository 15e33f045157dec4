package ledger

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Business declines are expected outcomes and are never retried;
// ErrUnavailable is the only kind a caller may retry; ErrInvariant means the store
// broke a guarantee mid-operation and must never be mapped to a decline.
var (
	// ErrInvalidAmount is returned when an amount fails the minimum-unit or scale rule.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameAccount is returned when a transfer names the same account on both sides.
	ErrSameAccount = errors.New("same account")

	// ErrInsufficientFunds is returned when the source balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when an account has no balance record.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnavailable is returned for retryable infrastructure failures:
	// lock-wait timeout, pool exhaustion, serialization or deadlock aborts.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrInvariant is returned when a locked row vanished or the store otherwise
	// violated its own guarantees. Fatal; do not present as a decline.
	ErrInvariant = errors.New("internal invariant broken")
)

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
// Kind MUST be one of the sentinel kinds above. Msg may carry human-readable context.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

func opErr(op string, kind error, msg string) error {
	return OpError{Op: op, Kind: kind, Msg: msg}
}

// IsDecline reports whether err is a business-rule decline (non-retryable, expected).
func IsDecline(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsUnavailable reports whether err is a retryable infrastructure failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsInvariant reports whether err represents a broken internal invariant.
func IsInvariant(err error) bool { return errors.Is(err, ErrInvariant) }
