package activity

import (
	"strings"

	"github.com/rpggio/fieldwork/internal/domain/field"
)

// ValidateTransition validates a requested lifecycle transition.
func ValidateTransition(from, to State) error {
	valid := false
	switch from {
	case StateScheduled:
		valid = to == StateInProgress
	case StateInProgress:
		valid = to == StateCompleted
	}
	if !valid {
		return ErrInvalidTransition
	}
	return nil
}

// NewStamp validates transition input before any store call.
func NewStamp(clock string, pos field.Position) (Stamp, error) {
	t, err := field.ParseClock(clock)
	if err != nil {
		return Stamp{}, err
	}
	coords, err := pos.Coordinates()
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{Time: t, Coordinates: coords}, nil
}

// Validate checks a stamp carried by a stored record.
func (s Stamp) Validate() error {
	if _, err := field.ParseClock(s.Time); err != nil {
		return err
	}
	return s.Coordinates.Validate()
}

// Validate checks the identity fields of an activity.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrMissingID
	}
	if !a.Kind.Valid() {
		return ErrUnknownKind
	}
	if strings.TrimSpace(a.RangerID) == "" {
		return ErrMissingRanger
	}
	switch p := a.Phase.(type) {
	case InProgress:
		return p.Start.Validate()
	case Completed:
		if err := p.Start.Validate(); err != nil {
			return err
		}
		return p.End.Validate()
	}
	return nil
}

// Validate checks a route point.
func (p RoutePoint) Validate() error {
	c := field.Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
	if err := c.Validate(); err != nil {
		return err
	}
	if p.RecordedAt.IsZero() {
		return ErrMissingRecordedAt
	}
	return nil
}

// Validate checks an evidence item.
func (e Evidence) Validate() error {
	if strings.TrimSpace(e.URL) == "" {
		return ErrMissingEvidenceURL
	}
	if e.CapturedAt.IsZero() {
		return ErrMissingCapturedAt
	}
	return nil
}
