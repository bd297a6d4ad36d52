package mocks

import (
	"context"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/stretchr/testify/mock"
)

// Remote is a mock for store.Remote.
type Remote struct {
	mock.Mock
}

func (m *Remote) ListActivities(ctx context.Context, rangerID string) ([]activity.Activity, error) {
	args := m.Called(ctx, rangerID)
	if list, ok := args.Get(0).([]activity.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	args := m.Called(ctx, id)
	if a, ok := args.Get(0).(activity.Activity); ok {
		return a, args.Error(1)
	}
	return activity.Activity{}, args.Error(1)
}

func (m *Remote) StartActivity(ctx context.Context, id string, start activity.Stamp) (activity.Activity, error) {
	args := m.Called(ctx, id, start)
	if a, ok := args.Get(0).(activity.Activity); ok {
		return a, args.Error(1)
	}
	return activity.Activity{}, args.Error(1)
}

func (m *Remote) FinishActivity(ctx context.Context, req activity.FinishRequest) (activity.Activity, error) {
	args := m.Called(ctx, req)
	if a, ok := args.Get(0).(activity.Activity); ok {
		return a, args.Error(1)
	}
	return activity.Activity{}, args.Error(1)
}

func (m *Remote) FetchActiveInProgress(ctx context.Context, rangerID string) (*activity.Resumable, error) {
	args := m.Called(ctx, rangerID)
	if r, ok := args.Get(0).(*activity.Resumable); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) ListRoutePoints(ctx context.Context, activityID string) ([]activity.RoutePoint, error) {
	args := m.Called(ctx, activityID)
	if list, ok := args.Get(0).([]activity.RoutePoint); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) AddRoutePoint(ctx context.Context, activityID string, p activity.RoutePoint) (activity.RoutePoint, error) {
	args := m.Called(ctx, activityID, p)
	if saved, ok := args.Get(0).(activity.RoutePoint); ok {
		return saved, args.Error(1)
	}
	return activity.RoutePoint{}, args.Error(1)
}

func (m *Remote) RemoveRoutePoint(ctx context.Context, activityID, pointID string) error {
	args := m.Called(ctx, activityID, pointID)
	return args.Error(0)
}

func (m *Remote) ListActivityFindings(ctx context.Context, activityID string) ([]finding.Finding, error) {
	args := m.Called(ctx, activityID)
	if list, ok := args.Get(0).([]finding.Finding); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) AddFinding(ctx context.Context, activityID string, f finding.Finding) (finding.Finding, error) {
	args := m.Called(ctx, activityID, f)
	if saved, ok := args.Get(0).(finding.Finding); ok {
		return saved, args.Error(1)
	}
	return finding.Finding{}, args.Error(1)
}

func (m *Remote) RemoveFinding(ctx context.Context, activityID, findingID string) error {
	args := m.Called(ctx, activityID, findingID)
	return args.Error(0)
}

func (m *Remote) ListEvidence(ctx context.Context, activityID string) ([]activity.Evidence, error) {
	args := m.Called(ctx, activityID)
	if list, ok := args.Get(0).([]activity.Evidence); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) ReportFinding(ctx context.Context, f finding.Finding) (finding.Finding, error) {
	args := m.Called(ctx, f)
	if saved, ok := args.Get(0).(finding.Finding); ok {
		return saved, args.Error(1)
	}
	return finding.Finding{}, args.Error(1)
}

func (m *Remote) GetFinding(ctx context.Context, id string) (finding.Finding, error) {
	args := m.Called(ctx, id)
	if f, ok := args.Get(0).(finding.Finding); ok {
		return f, args.Error(1)
	}
	return finding.Finding{}, args.Error(1)
}

func (m *Remote) ListIndependentFindings(ctx context.Context, rangerID string, day time.Time) ([]finding.Finding, error) {
	args := m.Called(ctx, rangerID, day)
	if list, ok := args.Get(0).([]finding.Finding); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) TransitionFinding(ctx context.Context, id string, to finding.Status) (finding.Finding, error) {
	args := m.Called(ctx, id, to)
	if f, ok := args.Get(0).(finding.Finding); ok {
		return f, args.Error(1)
	}
	return finding.Finding{}, args.Error(1)
}

func (m *Remote) AddFollowUp(ctx context.Context, id string, entry finding.FollowUp) (finding.Finding, error) {
	args := m.Called(ctx, id, entry)
	if f, ok := args.Get(0).(finding.Finding); ok {
		return f, args.Error(1)
	}
	return finding.Finding{}, args.Error(1)
}

// Sessions is a mock for activity.Sessions.
type Sessions struct {
	mock.Mock
}

func (m *Sessions) Open(a activity.Activity) {
	m.Called(a)
}

func (m *Sessions) Has(activityID string) bool {
	args := m.Called(activityID)
	return args.Bool(0)
}

func (m *Sessions) Pending(activityID string) activity.Pending {
	args := m.Called(activityID)
	if p, ok := args.Get(0).(activity.Pending); ok {
		return p
	}
	return activity.Pending{}
}

func (m *Sessions) Discard(activityID string) {
	m.Called(activityID)
}
