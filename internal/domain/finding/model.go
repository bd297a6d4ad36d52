package finding

import (
	"strings"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/field"
)

// Severity grades how urgently a finding needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// Status represents the workflow state of a finding.
type Status string

const (
	StatusReported Status = "reported"
	StatusInReview Status = "in_review"
	StatusResolved Status = "resolved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusReported, StatusInReview, StatusResolved:
		return true
	}
	return false
}

// FollowUp is one entry in a finding's follow-up log.
type FollowUp struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	Notes  string    `json:"notes,omitempty"`
}

// Finding is an observation reported by a ranger, optionally linked to an activity.
type Finding struct {
	ID          string            `json:"id,omitempty"`
	ClientRef   string            `json:"client_ref,omitempty"`
	ActivityID  string            `json:"activity_id,omitempty"`
	RangerID    string            `json:"ranger_id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Severity    Severity          `json:"severity"`
	Status      Status            `json:"status"`
	Coordinates field.Coordinates `json:"coordinates"`
	ReportedAt  time.Time         `json:"reported_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
	FollowUps   []FollowUp        `json:"follow_ups,omitempty"`
}

// Independent reports whether the finding was made outside any activity.
func (f Finding) Independent() bool {
	return f.ActivityID == ""
}

// Persisted reports whether the store has assigned an id.
func (f Finding) Persisted() bool {
	return f.ID != ""
}

// Durability is Immediate: a finding must survive a crash of the local session.
func (Finding) Durability() field.Durability {
	return field.Immediate
}

// Draft is user input for a new finding.
type Draft struct {
	Title       string
	Description string
	Severity    Severity
	Position    field.Position
	ReportedAt  time.Time
	ClientRef   string
}

// Build validates a draft and produces a finding in the reported state.
func (d Draft) Build(now time.Time) (Finding, error) {
	coords, err := d.Position.Coordinates()
	if err != nil {
		return Finding{}, err
	}
	reportedAt := d.ReportedAt
	if reportedAt.IsZero() {
		reportedAt = now
	}
	f := Finding{
		Title:       d.Title,
		Description: d.Description,
		Severity:    d.Severity,
		Status:      StatusReported,
		Coordinates: coords,
		ReportedAt:  reportedAt.UTC(),
		ClientRef:   strings.TrimSpace(d.ClientRef),
	}
	if err := f.Validate(); err != nil {
		return Finding{}, err
	}
	return f, nil
}

// Transition moves the finding to a new status, stamping resolution.
func (f *Finding) Transition(to Status, at time.Time) error {
	if err := ValidateTransition(f.Status, to); err != nil {
		return err
	}
	f.Status = to
	if to == StatusResolved {
		resolved := at.UTC()
		f.ResolvedAt = &resolved
	}
	return nil
}
