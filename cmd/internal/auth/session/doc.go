// Package session implements short-lived account sessions with idle-timeout
// expiry and a single-active-session-per-account invariant.
//
// Creating a session supersedes any prior session for the account (the old row
// is deleted first), so the invariant holds by construction rather than by
// rejecting concurrent logins. Expiry is evaluated lazily at validation time:
// there is no background sweep, so an expired session that is never looked up
// stays in storage until superseded or explicitly terminated. That is a
// deliberate trade-off and is covered by tests.
//
// Validation is not a pure read: a successful validation refreshes the
// activity deadline, and validating an expired session deletes it.
package session
