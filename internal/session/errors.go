package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the routine does not resolve. The session is terminal.
	ErrNotFound = errors.New("routine not found")
	// ErrLoadFailed marks a loader failure that degraded to an empty result.
	ErrLoadFailed = errors.New("load failed")
	// ErrValidationSkipped marks a set dropped at commit. Counted, never surfaced.
	ErrValidationSkipped = errors.New("set skipped by validation")
	// ErrWriteFailed means nothing was durably written.
	ErrWriteFailed = errors.New("workout write failed")
	// ErrPartialWriteFailed means the log row exists but its details do not.
	ErrPartialWriteFailed = errors.New("workout details write failed")
	// ErrCacheCorrupt marks an unreadable recovery snapshot. It is deleted.
	ErrCacheCorrupt = errors.New("recovery snapshot corrupt")
	// ErrRoutineMissing means finish was requested before a routine loaded.
	ErrRoutineMissing = errors.New("no routine loaded")

	// ErrInvalidState rejects an operation the current state does not allow.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrRecoveryPending rejects edits until the recovery offer is resolved.
	ErrRecoveryPending = errors.New("recovery decision pending")
	// ErrInvalidEdit rejects an edit that can never apply.
	ErrInvalidEdit = errors.New("invalid edit")
	// ErrSessionNotFound is returned by Manager.Get for unknown or foreign ids.
	ErrSessionNotFound = errors.New("session not found")
)

// CommitError describes a failed durable write. Temporary exercises and the
// recovery snapshot are left untouched so the same input can be retried.
type CommitError struct {
	Kind      error // ErrWriteFailed or ErrPartialWriteFailed
	LogID     int64 // set when the log row was written but its details were not
	Retryable bool
	Err       error
}

func (e *CommitError) Error() string {
	if e.LogID != 0 {
		return fmt.Sprintf("%v (log %d): %v", e.Kind, e.LogID, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *CommitError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func invalidState(op string, s State) error {
	if s == StateRecoveryPending {
		return fmt.Errorf("%s: %w", op, ErrRecoveryPending)
	}
	return fmt.Errorf("%s in state %s: %w", op, s, ErrInvalidState)
}
