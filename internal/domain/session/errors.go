package session

import (
	"fmt"

	"github.com/rpggio/fieldwork/internal/fault"
)

var (
	// ErrNoSession indicates no field session is open for the activity.
	ErrNoSession = fmt.Errorf("%w: no field session open for activity", fault.ErrIllegalTransition)
	// ErrItemNotFound indicates the item is not held by the field session.
	ErrItemNotFound = fmt.Errorf("%w: item not in field session", fault.ErrNotFound)
	// ErrMissingRanger indicates resumption without a ranger identity.
	ErrMissingRanger = fmt.Errorf("%w: ranger id is required", fault.ErrValidation)
)
