package store

import (
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
)

// Request and response bodies of the store's REST API.

type FinishBody struct {
	activity.Stamp
	Observations string                `json:"observations,omitempty"`
	Findings     []finding.Finding     `json:"findings"`
	Evidence     []activity.Evidence   `json:"evidence"`
	RoutePoints  []activity.RoutePoint `json:"route_points"`
}

type ActivityList struct {
	Activities []activity.Activity `json:"activities"`
}

type InProgressBody struct {
	Activity    *activity.Activity    `json:"activity"`
	RoutePoints []activity.RoutePoint `json:"route_points"`
}

type RoutePointList struct {
	RoutePoints []activity.RoutePoint `json:"route_points"`
}

type FindingList struct {
	Findings []finding.Finding `json:"findings"`
}

type EvidenceList struct {
	Evidence []activity.Evidence `json:"evidence"`
}

type TransitionBody struct {
	To finding.Status `json:"to"`
}

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorDetail.Code.
const (
	CodeUnauthenticated   = "unauthenticated"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeIllegalTransition = "illegal_transition"
	CodeInvalid           = "invalid"
	CodeInternal          = "internal"
)
