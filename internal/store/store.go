// Package store describes the remote activity store and fronts its reads with the cache.
package store

import (
	"context"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/domain/session"
)

// Remote is every operation the engine performs against the remote activity store.
type Remote interface {
	activity.Store
	session.Store
	finding.Store

	ListRoutePoints(ctx context.Context, activityID string) ([]activity.RoutePoint, error)
	ListEvidence(ctx context.Context, activityID string) ([]activity.Evidence, error)
}
