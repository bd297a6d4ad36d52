// Package fault defines the error taxonomy shared by the engine and its store adapters.
package fault

import "errors"

var (
	// ErrValidation indicates missing or malformed input; nothing was sent to the store.
	ErrValidation = errors.New("validation failed")
	// ErrIllegalTransition indicates the entity is not in a state that allows the operation.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrNotFound indicates the entity doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the entity belongs to another ranger.
	ErrForbidden = errors.New("forbidden")
	// ErrRejected indicates the store refused the payload.
	ErrRejected = errors.New("rejected by store")
	// ErrInvalidRecord indicates the store returned a record that failed validation.
	ErrInvalidRecord = errors.New("invalid record from store")
	// ErrNetwork indicates the store could not be reached or failed server-side.
	ErrNetwork = errors.New("network error")
	// ErrTimeout indicates the store did not answer in time.
	ErrTimeout = errors.New("timeout")
	// ErrSessionExpired indicates the bearer token is missing or was rejected.
	ErrSessionExpired = errors.New("session expired")
)

// Retryable reports whether the same command may be issued again.
// A failed write with a retryable error may still have been applied by the store.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}
