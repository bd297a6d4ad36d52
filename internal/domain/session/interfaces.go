package session

import (
	"context"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
)

// Store provides the remote operations a field session needs.
type Store interface {
	FetchActiveInProgress(ctx context.Context, rangerID string) (*activity.Resumable, error)
	AddRoutePoint(ctx context.Context, activityID string, p activity.RoutePoint) (activity.RoutePoint, error)
	RemoveRoutePoint(ctx context.Context, activityID, pointID string) error
	AddFinding(ctx context.Context, activityID string, f finding.Finding) (finding.Finding, error)
	RemoveFinding(ctx context.Context, activityID, findingID string) error
	ListActivityFindings(ctx context.Context, activityID string) ([]finding.Finding, error)
}
