package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/session"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/store/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func scheduledPatrol() activity.Activity {
	return activity.Activity{
		ID:            "A1",
		Code:          "PAT-001",
		Kind:          activity.KindPatrol,
		Description:   "north ridge",
		ScheduledDate: "2026-03-02",
		RangerID:      "r1",
		Phase:         activity.Scheduled{},
	}
}

func startStamp() activity.Stamp {
	return activity.Stamp{Time: "08:30", Coordinates: field.Coordinates{Latitude: 14.6349, Longitude: -90.5069}}
}

func inProgress(a activity.Activity) activity.Activity {
	a.Phase = activity.InProgress{Start: startStamp()}
	return a
}

func TestActivityService_Start_OpensBufferForPatrol(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := session.NewService(remote, nil)
	svc := activity.NewService(remote, sessions, nil)

	a1 := scheduledPatrol()
	remote.On("GetActivity", ctx, "A1").Return(a1, nil)
	remote.On("StartActivity", ctx, "A1", startStamp()).Return(inProgress(a1), nil)

	got, err := svc.Start(ctx, activity.StartInput{
		ActivityID: "A1",
		Time:       "08:30",
		Position:   field.At(14.6349, -90.5069),
	})
	require.NoError(t, err)
	require.Equal(t, activity.StateInProgress, got.State())
	stamp, ok := got.StartStamp()
	require.True(t, ok)
	require.Equal(t, startStamp(), stamp)

	buf, ok := sessions.Snapshot("A1")
	require.True(t, ok)
	require.False(t, buf.Resumed)
	require.Empty(t, buf.RoutePoints)
	require.Empty(t, buf.Findings)
	require.Empty(t, buf.Evidence)
	remote.AssertExpectations(t)
}

func TestActivityService_Start_NonPatrolHasNoBuffer(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := &mocks.Sessions{}
	svc := activity.NewService(remote, sessions, nil)

	a := scheduledPatrol()
	a.Kind = activity.KindMaintenance
	remote.On("GetActivity", ctx, "A1").Return(a, nil)
	remote.On("StartActivity", ctx, "A1", startStamp()).Return(inProgress(a), nil)

	_, err := svc.Start(ctx, activity.StartInput{ActivityID: "A1", Time: "08:30", Position: field.At(14.6349, -90.5069)})
	require.NoError(t, err)
	sessions.AssertNotCalled(t, "Open", mock.Anything)
}

func TestActivityService_Start_TwiceIsIllegal(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := &mocks.Sessions{}
	svc := activity.NewService(remote, sessions, nil)

	remote.On("GetActivity", ctx, "A1").Return(inProgress(scheduledPatrol()), nil)

	_, err := svc.Start(ctx, activity.StartInput{ActivityID: "A1", Time: "09:00", Position: field.At(14.7, -90.6)})
	require.ErrorIs(t, err, fault.ErrIllegalTransition)
	require.ErrorIs(t, err, activity.ErrInvalidTransition)
	remote.AssertNotCalled(t, "StartActivity", mock.Anything, mock.Anything, mock.Anything)
	sessions.AssertNotCalled(t, "Open", mock.Anything)
}

func TestActivityService_Start_RetryAfterLostResponse(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := session.NewService(remote, nil)
	svc := activity.NewService(remote, sessions, nil)

	remote.On("GetActivity", ctx, "A1").Return(inProgress(scheduledPatrol()), nil)

	got, err := svc.Start(ctx, activity.StartInput{ActivityID: "A1", Time: "08:30", Position: field.At(14.6349, -90.5069)})
	require.NoError(t, err)
	require.Equal(t, activity.StateInProgress, got.State())
	_, ok := sessions.Snapshot("A1")
	require.True(t, ok, "the patrol buffer opens on the retried start")
	remote.AssertNotCalled(t, "StartActivity", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivityService_Start_ValidatesBeforeNetwork(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := activity.NewService(remote, &mocks.Sessions{}, nil)

	lat := 14.6349
	cases := []activity.StartInput{
		{ActivityID: "A1", Time: "", Position: field.At(14.6349, -90.5069)},
		{ActivityID: "A1", Time: "08:30", Position: field.Position{Latitude: &lat}},
		{ActivityID: "A1", Time: "8h30", Position: field.At(14.6349, -90.5069)},
		{ActivityID: "", Time: "08:30", Position: field.At(14.6349, -90.5069)},
	}
	for _, in := range cases {
		_, err := svc.Start(ctx, in)
		require.ErrorIs(t, err, fault.ErrValidation)
	}
	remote.AssertNotCalled(t, "GetActivity", mock.Anything, mock.Anything)
}

func TestActivityService_Finish_PersistsEvidenceOnce(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := session.NewService(remote, nil)
	svc := activity.NewService(remote, sessions, nil)

	a1 := inProgress(scheduledPatrol())
	sessions.Open(a1)

	point := activity.RoutePoint{
		ID:         "P1",
		ActivityID: "A1",
		ClientRef:  "ref-p1",
		Latitude:   14.6350,
		Longitude:  -90.5070,
		RecordedAt: time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC),
	}
	remote.On("AddRoutePoint", ctx, "A1", mock.Anything).Return(point, nil)
	_, err := sessions.AddRoutePoint(ctx, "A1", session.RoutePointInput{
		Position:   field.At(14.6350, -90.5070),
		RecordedAt: point.RecordedAt,
	})
	require.NoError(t, err)

	ev, err := sessions.AddEvidence("A1", session.EvidenceInput{
		URL:        "file:///sdcard/DCIM/001.jpg",
		Category:   "wildlife",
		CapturedAt: time.Date(2026, 3, 2, 9, 10, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var sent activity.FinishRequest
	completed := a1
	completed.Phase = activity.Completed{
		Start: startStamp(),
		End:   activity.Stamp{Time: "10:00", Coordinates: field.Coordinates{Latitude: 14.6360, Longitude: -90.5080}},
	}
	remote.On("GetActivity", ctx, "A1").Return(a1, nil)
	remote.On("FinishActivity", ctx, mock.MatchedBy(func(req activity.FinishRequest) bool {
		sent = req
		return true
	})).Return(completed, nil)

	done, err := svc.Finish(ctx, activity.FinishInput{
		ActivityID:  "A1",
		Time:        "10:00",
		Position:    field.At(14.6360, -90.5080),
		Evidence:    []activity.Evidence{ev},
		RoutePoints: []activity.RoutePoint{point},
	})
	require.NoError(t, err)
	require.Equal(t, activity.StateCompleted, done.State())

	require.Len(t, sent.Evidence, 1)
	require.Equal(t, ev.ClientRef, sent.Evidence[0].ClientRef)
	require.Empty(t, sent.RoutePoints)
	require.Empty(t, sent.Findings)
	require.Equal(t, "10:00", sent.End.Time)

	_, ok := sessions.Snapshot("A1")
	require.False(t, ok)
	remote.AssertNumberOfCalls(t, "FinishActivity", 1)
}

func TestActivityService_Finish_AssignsClientRefs(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := &mocks.Sessions{}
	svc := activity.NewService(remote, sessions, nil)

	a := inProgress(scheduledPatrol())
	a.Kind = activity.KindInspection
	var sent activity.FinishRequest

	remote.On("GetActivity", ctx, "A1").Return(a, nil)
	sessions.On("Pending", "A1").Return(activity.Pending{})
	sessions.On("Discard", "A1").Return()
	remote.On("FinishActivity", ctx, mock.MatchedBy(func(req activity.FinishRequest) bool {
		sent = req
		return true
	})).Return(a, nil)

	evidence := activity.Evidence{URL: "https://img.example/1.jpg", CapturedAt: time.Now()}
	_, err := svc.Finish(ctx, activity.FinishInput{
		ActivityID:   "A1",
		Time:         "10:00",
		Position:     field.At(14.6360, -90.5080),
		Observations: "  fence repaired ",
		Evidence:     []activity.Evidence{evidence, evidence},
	})
	require.NoError(t, err)
	require.Len(t, sent.Evidence, 2)
	require.NotEmpty(t, sent.Evidence[0].ClientRef)
	require.NotEqual(t, sent.Evidence[0].ClientRef, sent.Evidence[1].ClientRef)
	require.Equal(t, "fence repaired", sent.Observations)
	sessions.AssertExpectations(t)
}

func TestActivityService_Finish_IllegalFromScheduled(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := &mocks.Sessions{}
	svc := activity.NewService(remote, sessions, nil)

	remote.On("GetActivity", ctx, "A1").Return(scheduledPatrol(), nil)

	_, err := svc.Finish(ctx, activity.FinishInput{ActivityID: "A1", Time: "10:00", Position: field.At(14.6360, -90.5080)})
	require.ErrorIs(t, err, fault.ErrIllegalTransition)
	remote.AssertNotCalled(t, "FinishActivity", mock.Anything, mock.Anything)
	sessions.AssertNotCalled(t, "Discard", mock.Anything)
}

func TestActivityService_Finish_FailureKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := session.NewService(remote, nil)
	svc := activity.NewService(remote, sessions, nil)

	a1 := inProgress(scheduledPatrol())
	sessions.Open(a1)
	_, err := sessions.AddEvidence("A1", session.EvidenceInput{URL: "file:///a.jpg"})
	require.NoError(t, err)
	before, _ := sessions.Snapshot("A1")

	remote.On("GetActivity", ctx, "A1").Return(a1, nil)
	remote.On("FinishActivity", ctx, mock.Anything).Return(activity.Activity{}, fault.ErrTimeout)

	_, err = svc.Finish(ctx, activity.FinishInput{ActivityID: "A1", Time: "10:00", Position: field.At(14.6360, -90.5080)})
	require.ErrorIs(t, err, fault.ErrTimeout)
	require.True(t, fault.Retryable(err))

	after, ok := sessions.Snapshot("A1")
	require.True(t, ok)
	require.Equal(t, before, after)
}

func TestActivityService_Finish_RetryAfterLostResponse(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := session.NewService(remote, nil)
	svc := activity.NewService(remote, sessions, nil)

	a1 := inProgress(scheduledPatrol())
	sessions.Open(a1)
	ev, err := sessions.AddEvidence("A1", session.EvidenceInput{URL: "file:///a.jpg"})
	require.NoError(t, err)

	end := activity.Stamp{Time: "10:00", Coordinates: field.Coordinates{Latitude: 14.6360, Longitude: -90.5080}}
	completed := a1
	completed.Phase = activity.Completed{Start: startStamp(), End: end, Observations: "dry creek"}
	var sent activity.FinishRequest
	remote.On("GetActivity", ctx, "A1").Return(completed, nil)
	remote.On("FinishActivity", ctx, mock.MatchedBy(func(req activity.FinishRequest) bool {
		sent = req
		return true
	})).Return(completed, nil)

	// The ranger retries with a different clock reading; the open buffer still reaches the store.
	done, err := svc.Finish(ctx, activity.FinishInput{ActivityID: "A1", Time: "10:05", Position: field.At(14.6360, -90.5080)})
	require.NoError(t, err)
	require.Equal(t, activity.StateCompleted, done.State())
	require.Equal(t, end, sent.End)
	require.Equal(t, "dry creek", sent.Observations)
	require.Len(t, sent.Evidence, 1)
	require.Equal(t, ev.ClientRef, sent.Evidence[0].ClientRef)

	_, ok := sessions.Snapshot("A1")
	require.False(t, ok)
}

func TestActivityService_Finish_CompletedElsewhereIsIllegal(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := &mocks.Sessions{}
	svc := activity.NewService(remote, sessions, nil)

	completed := inProgress(scheduledPatrol())
	completed.Phase = activity.Completed{
		Start: startStamp(),
		End:   activity.Stamp{Time: "10:00", Coordinates: field.Coordinates{Latitude: 14.6360, Longitude: -90.5080}},
	}
	remote.On("GetActivity", ctx, "A1").Return(completed, nil)
	sessions.On("Has", "A1").Return(false)

	_, err := svc.Finish(ctx, activity.FinishInput{ActivityID: "A1", Time: "11:00", Position: field.At(14.6360, -90.5080)})
	require.ErrorIs(t, err, fault.ErrIllegalTransition)
	remote.AssertNotCalled(t, "FinishActivity", mock.Anything, mock.Anything)
}

func TestActivityService_Finish_BundleRefsAreStable(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	sessions := &mocks.Sessions{}
	svc := activity.NewService(remote, sessions, nil)

	a := inProgress(scheduledPatrol())
	a.Kind = activity.KindMaintenance
	refs := make(map[string]struct{})
	remote.On("GetActivity", ctx, "A1").Return(a, nil)
	sessions.On("Pending", "A1").Return(activity.Pending{})
	remote.On("FinishActivity", ctx, mock.MatchedBy(func(req activity.FinishRequest) bool {
		for _, e := range req.Evidence {
			refs[e.ClientRef] = struct{}{}
		}
		return true
	})).Return(activity.Activity{}, fault.ErrNetwork)

	in := activity.FinishInput{
		ActivityID: "A1",
		Time:       "10:00",
		Position:   field.At(14.6360, -90.5080),
		Evidence:   []activity.Evidence{{URL: "https://img.example/1.jpg", CapturedAt: time.Now()}},
	}
	for range 2 {
		_, err := svc.Finish(ctx, in)
		require.ErrorIs(t, err, fault.ErrNetwork)
	}
	remote.AssertNumberOfCalls(t, "FinishActivity", 2)
	require.Len(t, refs, 1, "both attempts carry the same reference")
	require.NotContains(t, refs, "")
	require.Empty(t, in.Evidence[0].ClientRef, "the caller's slice is not modified")
}

func TestActivityService_Finish_MissingEndCoordinate(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := activity.NewService(remote, &mocks.Sessions{}, nil)

	lng := -90.5
	_, err := svc.Finish(ctx, activity.FinishInput{ActivityID: "A1", Time: "10:00", Position: field.Position{Longitude: &lng}})
	require.ErrorIs(t, err, field.ErrMissingCoordinate)
	remote.AssertNotCalled(t, "GetActivity", mock.Anything, mock.Anything)
}

func TestActivityService_List_Filters(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := activity.NewService(remote, &mocks.Sessions{}, nil)

	scheduled := scheduledPatrol()
	running := inProgress(scheduledPatrol())
	running.ID = "A2"
	running.Kind = activity.KindMonitoring
	remote.On("ListActivities", ctx, "r1").Return([]activity.Activity{scheduled, running}, nil)

	all, err := svc.List(ctx, "r1", activity.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyRunning, err := svc.List(ctx, "r1", activity.ListOptions{State: activity.StateInProgress})
	require.NoError(t, err)
	require.Len(t, onlyRunning, 1)
	require.Equal(t, "A2", onlyRunning[0].ID)

	patrols, err := svc.List(ctx, "r1", activity.ListOptions{Kind: activity.KindPatrol})
	require.NoError(t, err)
	require.Len(t, patrols, 1)
	require.Equal(t, "A1", patrols[0].ID)
}
