package session

import "errors"

var (
	// ErrTransitionRejected is returned when an event's precondition does not hold.
	ErrTransitionRejected = errors.New("session transition rejected")
	// ErrInvariantViolated is returned when a batch would commit an invalid state.
	ErrInvariantViolated = errors.New("session invariant violated")
	// ErrTxnClosed is returned by a transaction that has already finished.
	ErrTxnClosed = errors.New("session transaction already finished")
)
