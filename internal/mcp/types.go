package mcp

import (
	"time"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/domain/session"
)

// Timestamps cross the tool boundary as RFC 3339 strings.

type NoParams struct{}

type ListActivitiesParams struct {
	State string `json:"state,omitempty" jsonschema:"filter by state: scheduled, in_progress or completed"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by activity kind"`
}

type ActivityIDParams struct {
	ActivityID string `json:"activity_id" jsonschema:"activity id"`
}

type StartActivityParams struct {
	ActivityID string   `json:"activity_id" jsonschema:"activity id"`
	Time       string   `json:"time,omitempty" jsonschema:"wall-clock start time, HH:MM or HH:MM:SS"`
	Lat        *float64 `json:"lat,omitempty" jsonschema:"latitude in decimal degrees"`
	Lng        *float64 `json:"lng,omitempty" jsonschema:"longitude in decimal degrees"`
}

type FinishActivityParams struct {
	ActivityID   string   `json:"activity_id" jsonschema:"activity id"`
	Time         string   `json:"time,omitempty" jsonschema:"wall-clock end time, HH:MM or HH:MM:SS"`
	Lat          *float64 `json:"lat,omitempty" jsonschema:"latitude in decimal degrees"`
	Lng          *float64 `json:"lng,omitempty" jsonschema:"longitude in decimal degrees"`
	Observations string   `json:"observations,omitempty" jsonschema:"closing observations"`

	// Items collected outside a field session, sent with the finish call.
	Findings    []FindingDraftParams      `json:"findings,omitempty" jsonschema:"findings to attach to the activity"`
	Evidence    []BundledEvidenceParams   `json:"evidence,omitempty" jsonschema:"photos to attach to the activity"`
	RoutePoints []BundledRoutePointParams `json:"route_points,omitempty" jsonschema:"GPS fixes to attach to the activity"`
}

type BundledEvidenceParams struct {
	ClientRef   string `json:"client_ref,omitempty" jsonschema:"stable reference; repeat it when retrying"`
	URL         string `json:"url,omitempty" jsonschema:"location of the photo on the device"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CapturedAt  string `json:"captured_at,omitempty" jsonschema:"RFC 3339 capture time, defaults to now"`
}

type BundledRoutePointParams struct {
	ClientRef  string   `json:"client_ref,omitempty" jsonschema:"stable reference; repeat it when retrying"`
	Lat        *float64 `json:"lat,omitempty" jsonschema:"latitude in decimal degrees"`
	Lng        *float64 `json:"lng,omitempty" jsonschema:"longitude in decimal degrees"`
	RecordedAt string   `json:"recorded_at,omitempty" jsonschema:"RFC 3339 capture time, defaults to now"`
	Note       string   `json:"note,omitempty"`
}

type AddRoutePointParams struct {
	ActivityID string   `json:"activity_id" jsonschema:"in-progress patrol id"`
	Lat        *float64 `json:"lat,omitempty" jsonschema:"latitude in decimal degrees"`
	Lng        *float64 `json:"lng,omitempty" jsonschema:"longitude in decimal degrees"`
	RecordedAt string   `json:"recorded_at,omitempty" jsonschema:"RFC 3339 capture time, defaults to now"`
	Note       string   `json:"note,omitempty"`
	ClientRef  string   `json:"client_ref,omitempty" jsonschema:"stable reference; repeat it when retrying after a network error"`
}

type RemoveRoutePointParams struct {
	ActivityID string `json:"activity_id"`
	PointID    string `json:"point_id"`
}

type FindingDraftParams struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity,omitempty" jsonschema:"low, moderate, severe or critical"`
	Lat         *float64 `json:"lat,omitempty" jsonschema:"latitude in decimal degrees"`
	Lng         *float64 `json:"lng,omitempty" jsonschema:"longitude in decimal degrees"`
	ReportedAt  string   `json:"reported_at,omitempty" jsonschema:"RFC 3339 report time, defaults to now"`
	ClientRef   string   `json:"client_ref,omitempty" jsonschema:"stable reference; repeat it when retrying after a network error"`
}

type AddFindingParams struct {
	ActivityID  string   `json:"activity_id" jsonschema:"in-progress patrol id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity,omitempty" jsonschema:"low, moderate, severe or critical"`
	Lat         *float64 `json:"lat,omitempty" jsonschema:"latitude in decimal degrees"`
	Lng         *float64 `json:"lng,omitempty" jsonschema:"longitude in decimal degrees"`
	ReportedAt  string   `json:"reported_at,omitempty" jsonschema:"RFC 3339 report time, defaults to now"`
	ClientRef   string   `json:"client_ref,omitempty" jsonschema:"stable reference; repeat it when retrying after a network error"`
}

func (p AddFindingParams) finding() FindingDraftParams {
	return FindingDraftParams{
		Title:       p.Title,
		Description: p.Description,
		Severity:    p.Severity,
		Lat:         p.Lat,
		Lng:         p.Lng,
		ReportedAt:  p.ReportedAt,
		ClientRef:   p.ClientRef,
	}
}

type RemoveFindingParams struct {
	ActivityID string `json:"activity_id"`
	FindingID  string `json:"finding_id"`
}

type AddEvidenceParams struct {
	ActivityID  string `json:"activity_id" jsonschema:"in-progress patrol id"`
	URL         string `json:"url,omitempty" jsonschema:"location of the photo on the device"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CapturedAt  string `json:"captured_at,omitempty" jsonschema:"RFC 3339 capture time, defaults to now"`
}

type RemoveEvidenceParams struct {
	ActivityID string `json:"activity_id"`
	Ref        string `json:"ref" jsonschema:"client reference returned by add_evidence"`
}

type TransitionFindingParams struct {
	FindingID string `json:"finding_id"`
	To        string `json:"to" jsonschema:"in_review or resolved"`
}

type AddFollowUpParams struct {
	FindingID string `json:"finding_id"`
	Action    string `json:"action,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type SignInParams struct {
	Token string `json:"token" jsonschema:"bearer token issued for the ranger"`
}

type StampView struct {
	Time string  `json:"time"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type ActivityView struct {
	ID            string     `json:"id"`
	Code          string     `json:"code,omitempty"`
	Kind          string     `json:"kind"`
	Description   string     `json:"description,omitempty"`
	ScheduledDate string     `json:"scheduled_date,omitempty"`
	RangerID      string     `json:"ranger_id"`
	State         string     `json:"state"`
	Patrol        bool       `json:"patrol"`
	Start         *StampView `json:"start,omitempty"`
	End           *StampView `json:"end,omitempty"`
	Observations  string     `json:"observations,omitempty"`
}

type RoutePointView struct {
	ID         string  `json:"id,omitempty"`
	ClientRef  string  `json:"client_ref,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at"`
	Note       string  `json:"note,omitempty"`
}

type FollowUpView struct {
	At     string `json:"at"`
	Action string `json:"action"`
	Actor  string `json:"actor"`
	Notes  string `json:"notes,omitempty"`
}

type FindingView struct {
	ID          string         `json:"id,omitempty"`
	ActivityID  string         `json:"activity_id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Severity    string         `json:"severity"`
	Status      string         `json:"status"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	ReportedAt  string         `json:"reported_at"`
	ResolvedAt  string         `json:"resolved_at,omitempty"`
	FollowUps   []FollowUpView `json:"follow_ups"`
}

type EvidenceView struct {
	Ref         string `json:"ref"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CapturedAt  string `json:"captured_at"`
}

type SessionView struct {
	Activity    ActivityView     `json:"activity"`
	Findings    []FindingView    `json:"findings"`
	Evidence    []EvidenceView   `json:"evidence"`
	RoutePoints []RoutePointView `json:"route_points"`
	Resumed     bool             `json:"resumed"`
	OpenedAt    string           `json:"opened_at"`
}

type ActivityListResult struct {
	Activities []ActivityView `json:"activities"`
}

type StartActivityResult struct {
	Activity      ActivityView `json:"activity"`
	SessionOpened bool         `json:"session_opened"`
}

type FindingListResult struct {
	Findings []FindingView `json:"findings"`
}

type RemovedResult struct {
	Removed string `json:"removed"`
}

type SessionStateResult struct {
	RangerID       string        `json:"ranger_id"`
	SessionExpired bool          `json:"session_expired"`
	Sessions       []SessionView `json:"sessions"`
}

type SignInResult struct {
	RangerID string       `json:"ranger_id"`
	Resumed  bool         `json:"resumed"`
	Session  *SessionView `json:"session,omitempty"`
}

type AbandonResult struct {
	ActivityID   string `json:"activity_id"`
	LostEvidence int    `json:"lost_evidence"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func stampView(s activity.Stamp, ok bool) *StampView {
	if !ok {
		return nil
	}
	return &StampView{Time: s.Time, Lat: s.Latitude, Lng: s.Longitude}
}

func activityView(a activity.Activity) ActivityView {
	v := ActivityView{
		ID:            a.ID,
		Code:          a.Code,
		Kind:          string(a.Kind),
		Description:   a.Description,
		ScheduledDate: a.ScheduledDate,
		RangerID:      a.RangerID,
		State:         string(a.State()),
		Patrol:        a.Kind.IsPatrol(),
		Start:         stampView(a.StartStamp()),
		End:           stampView(a.EndStamp()),
	}
	if c, ok := a.Phase.(activity.Completed); ok {
		v.Observations = c.Observations
	}
	return v
}

func activityViews(list []activity.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(list))
	for _, a := range list {
		out = append(out, activityView(a))
	}
	return out
}

func routePointView(p activity.RoutePoint) RoutePointView {
	return RoutePointView{
		ID:         p.ID,
		ClientRef:  p.ClientRef,
		Lat:        p.Latitude,
		Lng:        p.Longitude,
		RecordedAt: formatTime(p.RecordedAt),
		Note:       p.Note,
	}
}

func findingView(f finding.Finding) FindingView {
	v := FindingView{
		ID:          f.ID,
		ActivityID:  f.ActivityID,
		Title:       f.Title,
		Description: f.Description,
		Severity:    string(f.Severity),
		Status:      string(f.Status),
		Lat:         f.Coordinates.Latitude,
		Lng:         f.Coordinates.Longitude,
		ReportedAt:  formatTime(f.ReportedAt),
		FollowUps:   make([]FollowUpView, 0, len(f.FollowUps)),
	}
	if f.ResolvedAt != nil {
		v.ResolvedAt = formatTime(*f.ResolvedAt)
	}
	for _, fu := range f.FollowUps {
		v.FollowUps = append(v.FollowUps, FollowUpView{At: formatTime(fu.At), Action: fu.Action, Actor: fu.Actor, Notes: fu.Notes})
	}
	return v
}

func findingViews(list []finding.Finding) []FindingView {
	out := make([]FindingView, 0, len(list))
	for _, f := range list {
		out = append(out, findingView(f))
	}
	return out
}

func evidenceView(e activity.Evidence) EvidenceView {
	return EvidenceView{
		Ref:         e.ClientRef,
		URL:         e.URL,
		Description: e.Description,
		Category:    e.Category,
		CapturedAt:  formatTime(e.CapturedAt),
	}
}

func sessionView(b session.Buffer) SessionView {
	v := SessionView{
		Activity:    activityView(b.Activity),
		Findings:    findingViews(b.Findings),
		Evidence:    make([]EvidenceView, 0, len(b.Evidence)),
		RoutePoints: make([]RoutePointView, 0, len(b.RoutePoints)),
		Resumed:     b.Resumed,
		OpenedAt:    formatTime(b.OpenedAt),
	}
	for _, e := range b.Evidence {
		v.Evidence = append(v.Evidence, evidenceView(e))
	}
	for _, p := range b.RoutePoints {
		v.RoutePoints = append(v.RoutePoints, routePointView(p))
	}
	return v
}

func position(lat, lng *float64) field.Position {
	return field.Position{Latitude: lat, Longitude: lng}
}
