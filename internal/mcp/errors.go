package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/fieldwork/internal/domain/session"
	"github.com/rpggio/fieldwork/internal/fault"
)

// ErrNotSignedIn is returned by every tool but sign_in while no ranger is known.
var ErrNotSignedIn = errors.New("no ranger is signed in")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotSignedIn):
		return &APIError{Code: "NOT_SIGNED_IN", Message: msg, RecoveryHint: "Call sign_in first"}
	case errors.Is(err, fault.ErrSessionExpired):
		return &APIError{Code: "SESSION_EXPIRED", Message: msg, RecoveryHint: "Call sign_in with a fresh token"}
	case errors.Is(err, session.ErrNoSession):
		return &APIError{Code: "NO_FIELD_SESSION", Message: msg, RecoveryHint: "Start the activity or sign in to resume it"}
	case errors.Is(err, fault.ErrValidation):
		return &APIError{Code: "VALIDATION_ERROR", Message: msg, RecoveryHint: "Correct the input and retry"}
	case errors.Is(err, fault.ErrIllegalTransition):
		return &APIError{Code: "ILLEGAL_TRANSITION", Message: msg, RecoveryHint: "Reload the activity to see its current state"}
	case errors.Is(err, fault.ErrTimeout):
		return &APIError{Code: "TIMEOUT", Message: msg, RecoveryHint: "Retry the same command"}
	case errors.Is(err, fault.ErrNetwork):
		return &APIError{Code: "NETWORK_ERROR", Message: msg, RecoveryHint: "Retry the same command"}
	case errors.Is(err, fault.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: msg, RecoveryHint: "Check ID spelling"}
	case errors.Is(err, fault.ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: msg}
	case errors.Is(err, fault.ErrRejected):
		return &APIError{Code: "REJECTED", Message: msg}
	case errors.Is(err, fault.ErrInvalidRecord):
		return &APIError{Code: "INVALID_RECORD", Message: msg, RecoveryHint: "The store sent data the engine cannot use"}
	default:
		return &APIError{Code: "INTERNAL", Message: msg}
	}
}
