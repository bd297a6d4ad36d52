package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fieldwork/internal/cache"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/store"
	"github.com/rpggio/fieldwork/internal/store/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func scheduled(id string) activity.Activity {
	return activity.Activity{ID: id, Kind: activity.KindPatrol, RangerID: "r1", Phase: activity.Scheduled{}}
}

func started(id string) activity.Activity {
	a := scheduled(id)
	a.Phase = activity.InProgress{Start: activity.Stamp{Time: "08:30", Coordinates: field.Coordinates{Latitude: 14.6, Longitude: -90.5}}}
	return a
}

func TestCached_ListActivities_ServedWithinTTL(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	clock := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := cache.New(cache.NewMemoryBackend(), cache.WithClock(func() time.Time { return clock }))
	cached := store.NewCached(remote, c)

	remote.On("ListActivities", ctx, "r1").Return([]activity.Activity{scheduled("A1")}, nil)

	for i := 0; i < 3; i++ {
		list, err := cached.ListActivities(ctx, "r1")
		require.NoError(t, err)
		require.Equal(t, []activity.Activity{scheduled("A1")}, list)
	}
	remote.AssertNumberOfCalls(t, "ListActivities", 1)

	clock = clock.Add(cache.DefaultTTL)
	_, err := cached.ListActivities(ctx, "r1")
	require.NoError(t, err)
	remote.AssertNumberOfCalls(t, "ListActivities", 2)
}

func TestCached_ReadAfterWriteIsFresh(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	cached := store.NewCached(remote, cache.New(cache.NewMemoryBackend()))
	stamp := activity.Stamp{Time: "08:30", Coordinates: field.Coordinates{Latitude: 14.6, Longitude: -90.5}}

	remote.On("ListActivities", ctx, "r1").Return([]activity.Activity{scheduled("A1")}, nil).Once()
	remote.On("StartActivity", ctx, "A1", stamp).Return(started("A1"), nil)
	remote.On("ListActivities", ctx, "r1").Return([]activity.Activity{started("A1")}, nil).Once()

	before, err := cached.ListActivities(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, activity.StateScheduled, before[0].State())

	_, err = cached.StartActivity(ctx, "A1", stamp)
	require.NoError(t, err)

	after, err := cached.ListActivities(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, activity.StateInProgress, after[0].State())
	remote.AssertExpectations(t)
}

// A rejected write leaves cached reads untouched. A write that failed with a network error or
// timeout may still have landed, so it invalidates like a success.
func TestCached_RejectedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	cached := store.NewCached(remote, cache.New(cache.NewMemoryBackend()))
	point := activity.RoutePoint{Latitude: 1, Longitude: 1, RecordedAt: time.Now()}

	remote.On("ListRoutePoints", ctx, "A1").Return([]activity.RoutePoint{}, nil)
	remote.On("AddRoutePoint", ctx, "A1", point).Return(activity.RoutePoint{}, fault.ErrIllegalTransition).Once()
	remote.On("AddRoutePoint", ctx, "A1", point).Return(activity.RoutePoint{}, fault.ErrTimeout).Once()

	_, err := cached.ListRoutePoints(ctx, "A1")
	require.NoError(t, err)

	_, err = cached.AddRoutePoint(ctx, "A1", point)
	require.Error(t, err)
	_, err = cached.ListRoutePoints(ctx, "A1")
	require.NoError(t, err)
	remote.AssertNumberOfCalls(t, "ListRoutePoints", 1)

	// A timed-out write may have landed.
	_, err = cached.AddRoutePoint(ctx, "A1", point)
	require.ErrorIs(t, err, fault.ErrTimeout)
	_, err = cached.ListRoutePoints(ctx, "A1")
	require.NoError(t, err)
	remote.AssertNumberOfCalls(t, "ListRoutePoints", 2)
}

func TestCached_FinishInvalidatesFindingsAndRoutes(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	cached := store.NewCached(remote, cache.New(cache.NewMemoryBackend()))
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	remote.On("ListIndependentFindings", ctx, "r1", day).Return([]finding.Finding{}, nil)
	remote.On("ListRoutePoints", ctx, "A1").Return([]activity.RoutePoint{}, nil)
	remote.On("FinishActivity", ctx, mock.Anything).Return(activity.Activity{}, nil)

	_, _ = cached.ListIndependentFindings(ctx, "r1", day)
	_, _ = cached.ListRoutePoints(ctx, "A1")
	_, err := cached.FinishActivity(ctx, activity.FinishRequest{ActivityID: "A1"})
	require.NoError(t, err)
	_, _ = cached.ListIndependentFindings(ctx, "r1", day)
	_, _ = cached.ListRoutePoints(ctx, "A1")

	remote.AssertNumberOfCalls(t, "ListIndependentFindings", 2)
	remote.AssertNumberOfCalls(t, "ListRoutePoints", 2)
}

func TestCached_LostFinishInvalidatesLists(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	cached := store.NewCached(remote, cache.New(cache.NewMemoryBackend()))

	remote.On("ListActivities", ctx, "r1").Return([]activity.Activity{}, nil)
	remote.On("FinishActivity", ctx, mock.Anything).Return(activity.Activity{}, fault.ErrIllegalTransition).Once()
	remote.On("FinishActivity", ctx, mock.Anything).Return(activity.Activity{}, fault.ErrNetwork).Once()

	_, err := cached.ListActivities(ctx, "r1")
	require.NoError(t, err)

	_, err = cached.FinishActivity(ctx, activity.FinishRequest{ActivityID: "A1"})
	require.ErrorIs(t, err, fault.ErrIllegalTransition)
	_, err = cached.ListActivities(ctx, "r1")
	require.NoError(t, err)
	remote.AssertNumberOfCalls(t, "ListActivities", 1)

	_, err = cached.FinishActivity(ctx, activity.FinishRequest{ActivityID: "A1"})
	require.ErrorIs(t, err, fault.ErrNetwork)
	_, err = cached.ListActivities(ctx, "r1")
	require.NoError(t, err)
	remote.AssertNumberOfCalls(t, "ListActivities", 2)
}

func TestCached_TransitionReadsAreUncached(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	cached := store.NewCached(remote, cache.New(cache.NewMemoryBackend()))

	remote.On("GetActivity", ctx, "A1").Return(scheduled("A1"), nil)
	remote.On("FetchActiveInProgress", ctx, "r1").Return(nil, nil)

	for i := 0; i < 2; i++ {
		_, err := cached.GetActivity(ctx, "A1")
		require.NoError(t, err)
		res, err := cached.FetchActiveInProgress(ctx, "r1")
		require.NoError(t, err)
		require.Nil(t, res)
	}
	remote.AssertNumberOfCalls(t, "GetActivity", 2)
	remote.AssertNumberOfCalls(t, "FetchActiveInProgress", 2)
}
