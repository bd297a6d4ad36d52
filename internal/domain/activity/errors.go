package activity

import (
	"fmt"

	"github.com/rpggio/fieldwork/internal/fault"
)

var (
	// ErrMissingID indicates an operation without an activity id.
	ErrMissingID = fmt.Errorf("%w: activity id is required", fault.ErrValidation)
	// ErrUnknownKind indicates a kind outside the catalog.
	ErrUnknownKind = fmt.Errorf("%w: unknown activity kind", fault.ErrValidation)
	// ErrMissingRanger indicates an activity without an assigned ranger.
	ErrMissingRanger = fmt.Errorf("%w: assigned ranger is required", fault.ErrValidation)
	// ErrMissingRecordedAt indicates a route point without a timestamp.
	ErrMissingRecordedAt = fmt.Errorf("%w: route point timestamp is required", fault.ErrValidation)
	// ErrMissingEvidenceURL indicates evidence without a reference.
	ErrMissingEvidenceURL = fmt.Errorf("%w: evidence url is required", fault.ErrValidation)
	// ErrMissingCapturedAt indicates evidence without a timestamp.
	ErrMissingCapturedAt = fmt.Errorf("%w: evidence timestamp is required", fault.ErrValidation)
	// ErrInvalidTransition indicates a transition the lifecycle does not allow.
	ErrInvalidTransition = fmt.Errorf("%w: activity state", fault.ErrIllegalTransition)
	// ErrMalformed indicates a stored record whose fields contradict its state tag.
	ErrMalformed = fmt.Errorf("%w: malformed activity", fault.ErrInvalidRecord)
)
