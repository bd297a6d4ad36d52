package finding

import (
	"fmt"

	"github.com/rpggio/fieldwork/internal/fault"
)

var (
	// ErrMissingTitle indicates a finding without a title.
	ErrMissingTitle = fmt.Errorf("%w: finding title is required", fault.ErrValidation)
	// ErrInvalidSeverity indicates an unknown severity.
	ErrInvalidSeverity = fmt.Errorf("%w: unknown finding severity", fault.ErrValidation)
	// ErrInvalidStatus indicates an unknown status.
	ErrInvalidStatus = fmt.Errorf("%w: unknown finding status", fault.ErrValidation)
	// ErrMissingReportedAt indicates a finding without a report timestamp.
	ErrMissingReportedAt = fmt.Errorf("%w: finding timestamp is required", fault.ErrValidation)
	// ErrResolutionMismatch indicates a resolution stamp that disagrees with the status.
	ErrResolutionMismatch = fmt.Errorf("%w: resolution stamp must be set exactly when resolved", fault.ErrValidation)
	// ErrMissingFollowUpAction indicates a follow-up without action text.
	ErrMissingFollowUpAction = fmt.Errorf("%w: follow-up action is required", fault.ErrValidation)
	// ErrMissingFollowUpActor indicates a follow-up without an actor.
	ErrMissingFollowUpActor = fmt.Errorf("%w: follow-up actor is required", fault.ErrValidation)
	// ErrMissingID indicates an operation without a finding id.
	ErrMissingID = fmt.Errorf("%w: finding id is required", fault.ErrValidation)
	// ErrInvalidTransition indicates a status change the workflow does not allow.
	ErrInvalidTransition = fmt.Errorf("%w: finding status", fault.ErrIllegalTransition)
)
