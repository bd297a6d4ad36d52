package activity

import (
	"encoding/json"
	"fmt"
)

// record is the wire and storage shape of an activity: a state tag plus optional stamps.
type record struct {
	ID            string `json:"id"`
	Code          string `json:"code,omitempty"`
	Kind          Kind   `json:"kind"`
	Description   string `json:"description,omitempty"`
	ScheduledDate string `json:"scheduled_date,omitempty"`
	RangerID      string `json:"ranger_id"`
	State         State  `json:"state"`
	Start         *Stamp `json:"start,omitempty"`
	End           *Stamp `json:"end,omitempty"`
	Observations  string `json:"observations,omitempty"`
}

// Assemble builds an activity from flat fields, rejecting combinations the state tag forbids.
func Assemble(base Activity, state State, start, end *Stamp, observations string) (Activity, error) {
	switch state {
	case StateScheduled:
		if start != nil || end != nil || observations != "" {
			return Activity{}, fmt.Errorf("%w: scheduled activity %q carries transition data", ErrMalformed, base.ID)
		}
		base.Phase = Scheduled{}
	case StateInProgress:
		if start == nil || end != nil || observations != "" {
			return Activity{}, fmt.Errorf("%w: in-progress activity %q needs a start stamp only", ErrMalformed, base.ID)
		}
		base.Phase = InProgress{Start: *start}
	case StateCompleted:
		if start == nil || end == nil {
			return Activity{}, fmt.Errorf("%w: completed activity %q needs both stamps", ErrMalformed, base.ID)
		}
		base.Phase = Completed{Start: *start, End: *end, Observations: observations}
	default:
		return Activity{}, fmt.Errorf("%w: unknown state %q", ErrMalformed, state)
	}
	return base, nil
}

// MarshalJSON encodes the phase as a state tag with its stamps.
func (a Activity) MarshalJSON() ([]byte, error) {
	rec := record{
		ID:            a.ID,
		Code:          a.Code,
		Kind:          a.Kind,
		Description:   a.Description,
		ScheduledDate: a.ScheduledDate,
		RangerID:      a.RangerID,
		State:         a.State(),
	}
	switch p := a.Phase.(type) {
	case InProgress:
		rec.Start = &p.Start
	case Completed:
		rec.Start = &p.Start
		rec.End = &p.End
		rec.Observations = p.Observations
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a tagged record, rejecting fields that contradict the tag.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out, err := Assemble(Activity{
		ID:            rec.ID,
		Code:          rec.Code,
		Kind:          rec.Kind,
		Description:   rec.Description,
		ScheduledDate: rec.ScheduledDate,
		RangerID:      rec.RangerID,
	}, rec.State, rec.Start, rec.End, rec.Observations)
	if err != nil {
		return err
	}
	*a = out
	return nil
}
