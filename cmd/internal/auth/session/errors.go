package session

import "errors"

var (
	// ErrSessionNotFound is returned when a session id matches no stored session
	// (including the empty id).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when validation finds the idle timeout
	// elapsed. The session row is deleted as a side effect of this detection;
	// the id is permanently invalid afterwards.
	ErrSessionExpired = errors.New("session expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
