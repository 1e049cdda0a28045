package domain

import "errors"

var (
	// ErrEmptyMessage rejects empty or whitespace-only message text. Surfaced
	// to the sender only, no side effects.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrDuplicateConnection reports an id collision on Add. Gateway-assigned
	// ids are unique in practice; a collision is logged as an anomaly, not
	// surfaced to peers.
	ErrDuplicateConnection = errors.New("connection id already registered")
)

// PersistenceError wraps a message store failure. The broadcast that hit it
// was not delivered to anyone, so retrying the whole call is safe.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "message persistence failed: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
