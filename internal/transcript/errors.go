package transcript

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown to the
	// backing document store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRole is returned when an entry's role is outside the closed
	// set {system, user, assistant}.
	ErrInvalidRole = errors.New("invalid message role")
	// ErrStoreUnavailable wraps failures to reach the backing document store.
	ErrStoreUnavailable = errors.New("transcript store unavailable")
)
