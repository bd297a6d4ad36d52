package finding

import "strings"

// Validate checks the fields every finding must carry.
func (f Finding) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrMissingTitle
	}
	if !f.Severity.Valid() {
		return ErrInvalidSeverity
	}
	if !f.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := f.Coordinates.Validate(); err != nil {
		return err
	}
	if f.ReportedAt.IsZero() {
		return ErrMissingReportedAt
	}
	if (f.Status == StatusResolved) != (f.ResolvedAt != nil) {
		return ErrResolutionMismatch
	}
	for _, fu := range f.FollowUps {
		if err := fu.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a follow-up log entry.
func (fu FollowUp) Validate() error {
	if strings.TrimSpace(fu.Action) == "" {
		return ErrMissingFollowUpAction
	}
	if strings.TrimSpace(fu.Actor) == "" {
		return ErrMissingFollowUpActor
	}
	return nil
}

// ValidateTransition validates a requested status change.
// Resolved is terminal.
func ValidateTransition(from, to Status) error {
	valid := false
	switch from {
	case StatusReported:
		switch to {
		case StatusInReview, StatusResolved:
			valid = true
		}
	case StatusInReview:
		if to == StatusResolved {
			valid = true
		}
	}
	if !valid {
		return ErrInvalidTransition
	}
	return nil
}
