package activity

import (
	"time"

	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
)

// Kind is the catalog type of an activity.
type Kind string

const (
	KindPatrol                 Kind = "patrol"
	KindPerimeterPatrol        Kind = "perimeter_patrol"
	KindMaintenance            Kind = "maintenance"
	KindEnvironmentalEducation Kind = "environmental_education"
	KindMonitoring             Kind = "monitoring"
	KindReforestation          Kind = "reforestation"
	KindInspection             Kind = "inspection"
	KindOther                  Kind = "other"
)

// Valid reports whether k belongs to the catalog.
func (k Kind) Valid() bool {
	switch k {
	case KindPatrol, KindPerimeterPatrol, KindMaintenance, KindEnvironmentalEducation,
		KindMonitoring, KindReforestation, KindInspection, KindOther:
		return true
	}
	return false
}

// IsPatrol reports whether the in-progress phase tracks a moving route.
func (k Kind) IsPatrol() bool {
	return k == KindPatrol || k == KindPerimeterPatrol
}

// State represents an activity's lifecycle state.
type State string

const (
	StateScheduled  State = "scheduled"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateScheduled, StateInProgress, StateCompleted:
		return true
	}
	return false
}

// Stamp is the time and place a transition happened.
type Stamp struct {
	Time string `json:"time"`
	field.Coordinates
}

// Phase carries the data that exists only in a particular state.
type Phase interface {
	State() State
	phase()
}

// Scheduled is the initial phase.
type Scheduled struct{}

// InProgress holds the start stamp.
type InProgress struct {
	Start Stamp
}

// Completed holds both stamps and the closing observations.
type Completed struct {
	Start        Stamp
	End          Stamp
	Observations string
}

func (Scheduled) State() State  { return StateScheduled }
func (InProgress) State() State { return StateInProgress }
func (Completed) State() State  { return StateCompleted }

func (Scheduled) phase()  {}
func (InProgress) phase() {}
func (Completed) phase()  {}

// Activity is a scheduled unit of ranger fieldwork.
type Activity struct {
	ID            string
	Code          string
	Kind          Kind
	Description   string
	ScheduledDate string
	RangerID      string
	Phase         Phase
}

// State returns the lifecycle state; a nil phase is Scheduled.
func (a Activity) State() State {
	if a.Phase == nil {
		return StateScheduled
	}
	return a.Phase.State()
}

// StartStamp returns the start stamp once the activity has started.
func (a Activity) StartStamp() (Stamp, bool) {
	switch p := a.Phase.(type) {
	case InProgress:
		return p.Start, true
	case Completed:
		return p.Start, true
	}
	return Stamp{}, false
}

// EndStamp returns the end stamp of a completed activity.
func (a Activity) EndStamp() (Stamp, bool) {
	if p, ok := a.Phase.(Completed); ok {
		return p.End, true
	}
	return Stamp{}, false
}

// RoutePoint is one GPS fix captured during a patrol.
type RoutePoint struct {
	ID         string    `json:"id,omitempty"`
	ActivityID string    `json:"activity_id,omitempty"`
	ClientRef  string    `json:"client_ref,omitempty"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	Note       string    `json:"note,omitempty"`
}

// Persisted reports whether the store has assigned an id.
func (p RoutePoint) Persisted() bool {
	return p.ID != ""
}

// Durability is Immediate: a lost GPS fix cannot be reconstructed.
func (RoutePoint) Durability() field.Durability {
	return field.Immediate
}

// Evidence is a photographic attachment.
type Evidence struct {
	ID          string    `json:"id,omitempty"`
	ActivityID  string    `json:"activity_id,omitempty"`
	ClientRef   string    `json:"client_ref"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Persisted reports whether the store has assigned an id.
func (e Evidence) Persisted() bool {
	return e.ID != ""
}

// Durability is Deferred: evidence reaches the store only with the finish call.
func (Evidence) Durability() field.Durability {
	return field.Deferred
}

// Resumable is an in-progress activity together with its persisted route.
type Resumable struct {
	Activity    Activity
	RoutePoints []RoutePoint
}

// FinishRequest is the single finalize call sent to the store.
type FinishRequest struct {
	ActivityID   string
	End          Stamp
	Observations string
	Findings     []finding.Finding
	Evidence     []Evidence
	RoutePoints  []RoutePoint
}

// Pending holds buffered items the store has not confirmed yet.
type Pending struct {
	Findings    []finding.Finding
	Evidence    []Evidence
	RoutePoints []RoutePoint
}
