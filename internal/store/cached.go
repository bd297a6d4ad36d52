package store

import (
	"context"
	"time"

	"github.com/rpggio/fieldwork/internal/cache"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/fault"
)

// Cached serves list reads from the cache and invalidates the affected resources on every write.
// Reads that guard a transition (single activity, in-progress lookup, single finding) always go to the store.
type Cached struct {
	remote Remote
	cache  *cache.Cache
}

// NewCached wraps remote with c.
func NewCached(remote Remote, c *cache.Cache) *Cached {
	return &Cached{remote: remote, cache: c}
}

var _ Remote = (*Cached)(nil)

func rangerActivitiesKey(rangerID string) cache.Key {
	return cache.Key{Resource: cache.Activities, Scope: cache.ScopeOf("ranger", rangerID)}
}

func evidenceKey(activityID string) cache.Key {
	return cache.Key{Resource: cache.Activities, Scope: cache.ScopeOf("evidence", activityID)}
}

func routeKey(activityID string) cache.Key {
	return cache.Key{Resource: cache.Routes, Scope: cache.ScopeOf("activity", activityID)}
}

func activityFindingsKey(activityID string) cache.Key {
	return cache.Key{Resource: cache.Findings, Scope: cache.ScopeOf("activity", activityID)}
}

func independentFindingsKey(rangerID string, day time.Time) cache.Key {
	return cache.Key{Resource: cache.Findings, Scope: cache.ScopeOf("ranger", rangerID, "independent", day.UTC().Format(time.DateOnly))}
}

// invalidate runs after a write. A retryable failure may still have reached the store, so it invalidates too.
func (c *Cached) invalidate(ctx context.Context, err error, resources ...cache.Resource) {
	if err != nil && !fault.Retryable(err) {
		return
	}
	for _, r := range resources {
		c.cache.InvalidateResource(ctx, r)
	}
}

func (c *Cached) ListActivities(ctx context.Context, rangerID string) ([]activity.Activity, error) {
	return cache.Read(ctx, c.cache, rangerActivitiesKey(rangerID), func(ctx context.Context) ([]activity.Activity, error) {
		return c.remote.ListActivities(ctx, rangerID)
	})
}

func (c *Cached) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	return c.remote.GetActivity(ctx, id)
}

func (c *Cached) FetchActiveInProgress(ctx context.Context, rangerID string) (*activity.Resumable, error) {
	return c.remote.FetchActiveInProgress(ctx, rangerID)
}

func (c *Cached) StartActivity(ctx context.Context, id string, start activity.Stamp) (activity.Activity, error) {
	a, err := c.remote.StartActivity(ctx, id, start)
	c.invalidate(ctx, err, cache.Activities)
	return a, err
}

func (c *Cached) FinishActivity(ctx context.Context, req activity.FinishRequest) (activity.Activity, error) {
	a, err := c.remote.FinishActivity(ctx, req)
	c.invalidate(ctx, err, cache.Activities, cache.Routes, cache.Findings)
	return a, err
}

func (c *Cached) ListRoutePoints(ctx context.Context, activityID string) ([]activity.RoutePoint, error) {
	return cache.Read(ctx, c.cache, routeKey(activityID), func(ctx context.Context) ([]activity.RoutePoint, error) {
		return c.remote.ListRoutePoints(ctx, activityID)
	})
}

func (c *Cached) AddRoutePoint(ctx context.Context, activityID string, p activity.RoutePoint) (activity.RoutePoint, error) {
	saved, err := c.remote.AddRoutePoint(ctx, activityID, p)
	c.invalidate(ctx, err, cache.Routes)
	return saved, err
}

func (c *Cached) RemoveRoutePoint(ctx context.Context, activityID, pointID string) error {
	err := c.remote.RemoveRoutePoint(ctx, activityID, pointID)
	c.invalidate(ctx, err, cache.Routes)
	return err
}

func (c *Cached) ListActivityFindings(ctx context.Context, activityID string) ([]finding.Finding, error) {
	return cache.Read(ctx, c.cache, activityFindingsKey(activityID), func(ctx context.Context) ([]finding.Finding, error) {
		return c.remote.ListActivityFindings(ctx, activityID)
	})
}

func (c *Cached) AddFinding(ctx context.Context, activityID string, f finding.Finding) (finding.Finding, error) {
	saved, err := c.remote.AddFinding(ctx, activityID, f)
	c.invalidate(ctx, err, cache.Findings)
	return saved, err
}

func (c *Cached) RemoveFinding(ctx context.Context, activityID, findingID string) error {
	err := c.remote.RemoveFinding(ctx, activityID, findingID)
	c.invalidate(ctx, err, cache.Findings)
	return err
}

func (c *Cached) ListEvidence(ctx context.Context, activityID string) ([]activity.Evidence, error) {
	return cache.Read(ctx, c.cache, evidenceKey(activityID), func(ctx context.Context) ([]activity.Evidence, error) {
		return c.remote.ListEvidence(ctx, activityID)
	})
}

func (c *Cached) ReportFinding(ctx context.Context, f finding.Finding) (finding.Finding, error) {
	saved, err := c.remote.ReportFinding(ctx, f)
	c.invalidate(ctx, err, cache.Findings)
	return saved, err
}

func (c *Cached) GetFinding(ctx context.Context, id string) (finding.Finding, error) {
	return c.remote.GetFinding(ctx, id)
}

func (c *Cached) ListIndependentFindings(ctx context.Context, rangerID string, day time.Time) ([]finding.Finding, error) {
	return cache.Read(ctx, c.cache, independentFindingsKey(rangerID, day), func(ctx context.Context) ([]finding.Finding, error) {
		return c.remote.ListIndependentFindings(ctx, rangerID, day)
	})
}

func (c *Cached) TransitionFinding(ctx context.Context, id string, to finding.Status) (finding.Finding, error) {
	f, err := c.remote.TransitionFinding(ctx, id, to)
	c.invalidate(ctx, err, cache.Findings)
	return f, err
}

func (c *Cached) AddFollowUp(ctx context.Context, id string, entry finding.FollowUp) (finding.Finding, error) {
	f, err := c.remote.AddFollowUp(ctx, id, entry)
	c.invalidate(ctx, err, cache.Findings)
	return f, err
}
