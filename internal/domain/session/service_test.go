package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/domain/session"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/store/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC)

func runningPatrol(id string) activity.Activity {
	return activity.Activity{
		ID:       id,
		Kind:     activity.KindPatrol,
		RangerID: "r1",
		Phase: activity.InProgress{Start: activity.Stamp{
			Time:        "08:30",
			Coordinates: field.Coordinates{Latitude: 14.6349, Longitude: -90.5069},
		}},
	}
}

func newService(remote *mocks.Remote) *session.Service {
	return session.NewService(remote, nil).WithClock(func() time.Time { return fixedNow })
}

func TestSessionService_AddRoutePoint_PersistsImmediately(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	var sent activity.RoutePoint
	remote.On("AddRoutePoint", ctx, "A1", mock.MatchedBy(func(p activity.RoutePoint) bool {
		sent = p
		return true
	})).Return(activity.RoutePoint{
		ID:         "P1",
		ActivityID: "A1",
		Latitude:   14.6350,
		Longitude:  -90.5070,
		RecordedAt: fixedNow,
	}, nil).Once()

	saved, err := svc.AddRoutePoint(ctx, "A1", session.RoutePointInput{Position: field.At(14.6350, -90.5070)})
	require.NoError(t, err)
	require.Equal(t, "P1", saved.ID)
	require.NotEmpty(t, sent.ClientRef)
	require.Equal(t, fixedNow, sent.RecordedAt)

	buf, ok := svc.Snapshot("A1")
	require.True(t, ok)
	require.Equal(t, []activity.RoutePoint{saved}, buf.RoutePoints)
	remote.AssertNumberOfCalls(t, "AddRoutePoint", 1)
}

func TestSessionService_AddRoutePoint_FailureLeavesBuffer(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	remote.On("AddRoutePoint", ctx, "A1", mock.Anything).Return(activity.RoutePoint{}, fault.ErrNetwork)

	_, err := svc.AddRoutePoint(ctx, "A1", session.RoutePointInput{Position: field.At(14.6350, -90.5070)})
	require.ErrorIs(t, err, fault.ErrNetwork)
	buf, _ := svc.Snapshot("A1")
	require.Empty(t, buf.RoutePoints)
}

func TestSessionService_AddRoutePoint_RetryKeepsClientRef(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	refs := make(map[string]int)
	stored := activity.RoutePoint{ID: "P1", ActivityID: "A1", ClientRef: "fix-1", Latitude: 14.6350, Longitude: -90.5070, RecordedAt: fixedNow}
	remote.On("AddRoutePoint", ctx, "A1", mock.MatchedBy(func(p activity.RoutePoint) bool {
		refs[p.ClientRef]++
		return true
	})).Return(activity.RoutePoint{}, fault.ErrTimeout).Once()
	remote.On("AddRoutePoint", ctx, "A1", mock.Anything).Return(stored, nil).Twice()

	in := session.RoutePointInput{Position: field.At(14.6350, -90.5070), ClientRef: "fix-1"}
	_, err := svc.AddRoutePoint(ctx, "A1", in)
	require.ErrorIs(t, err, fault.ErrTimeout)
	for range 2 {
		_, err = svc.AddRoutePoint(ctx, "A1", in)
		require.NoError(t, err)
	}

	require.Contains(t, refs, "fix-1")
	buf, _ := svc.Snapshot("A1")
	require.Equal(t, []activity.RoutePoint{stored}, buf.RoutePoints, "a repeated reference is not buffered twice")
	remote.AssertNumberOfCalls(t, "AddRoutePoint", 3)
}

func TestSessionService_AddFinding_KeepsDraftClientRef(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	var sent finding.Finding
	remote.On("AddFinding", ctx, "A1", mock.MatchedBy(func(f finding.Finding) bool {
		sent = f
		return true
	})).Return(finding.Finding{ID: "F1", ActivityID: "A1", ClientRef: "find-1", Title: "snare", Severity: finding.SeverityLow}, nil)

	draft := finding.Draft{Title: "snare", Severity: finding.SeverityLow, Position: field.At(14.6351, -90.5071), ClientRef: "find-1"}
	for range 2 {
		_, err := svc.AddFinding(ctx, "A1", draft)
		require.NoError(t, err)
	}
	require.Equal(t, "find-1", sent.ClientRef)
	buf, _ := svc.Snapshot("A1")
	require.Len(t, buf.Findings, 1)
}

func TestSessionService_OpenTwiceKeepsItems(t *testing.T) {
	svc := newService(&mocks.Remote{})
	svc.Open(runningPatrol("A1"))
	_, err := svc.AddEvidence("A1", session.EvidenceInput{URL: "file:///a.jpg"})
	require.NoError(t, err)

	svc.Open(runningPatrol("A1"))
	buf, ok := svc.Snapshot("A1")
	require.True(t, ok)
	require.Len(t, buf.Evidence, 1)
	require.True(t, svc.Has("A1"))
	require.False(t, svc.Has("A2"))
}

func TestSessionService_AddRoutePoint_Validation(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	lat := 14.6
	_, err := svc.AddRoutePoint(ctx, "A1", session.RoutePointInput{Position: field.Position{Latitude: &lat}})
	require.ErrorIs(t, err, fault.ErrValidation)

	_, err = svc.AddRoutePoint(ctx, "A9", session.RoutePointInput{Position: field.At(14.6, -90.5)})
	require.ErrorIs(t, err, session.ErrNoSession)
	remote.AssertNotCalled(t, "AddRoutePoint", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_RoutePointRoundTrip(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	first := activity.RoutePoint{ID: "P0", ActivityID: "A1", Latitude: 14.6, Longitude: -90.5, RecordedAt: fixedNow}
	second := activity.RoutePoint{ID: "P1", ActivityID: "A1", Latitude: 14.7, Longitude: -90.6, RecordedAt: fixedNow}
	remote.On("AddRoutePoint", ctx, "A1", mock.Anything).Return(first, nil).Once()
	remote.On("AddRoutePoint", ctx, "A1", mock.Anything).Return(second, nil).Once()
	remote.On("RemoveRoutePoint", ctx, "A1", "P1").Return(nil)

	_, err := svc.AddRoutePoint(ctx, "A1", session.RoutePointInput{Position: field.At(14.6, -90.5)})
	require.NoError(t, err)
	before, _ := svc.Snapshot("A1")

	added, err := svc.AddRoutePoint(ctx, "A1", session.RoutePointInput{Position: field.At(14.7, -90.6)})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveRoutePoint(ctx, "A1", added.ID))

	after, _ := svc.Snapshot("A1")
	require.Equal(t, before.RoutePoints, after.RoutePoints)
	remote.AssertExpectations(t)
}

func TestSessionService_RemoveRoutePoint_UnknownIsLocal(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	err := svc.RemoveRoutePoint(ctx, "A1", "missing")
	require.ErrorIs(t, err, session.ErrItemNotFound)
	remote.AssertNotCalled(t, "RemoveRoutePoint", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_Findings(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	var sent finding.Finding
	remote.On("AddFinding", ctx, "A1", mock.MatchedBy(func(f finding.Finding) bool {
		sent = f
		return true
	})).Return(finding.Finding{ID: "F1", ActivityID: "A1", Title: "snare", Severity: finding.SeveritySevere}, nil)
	remote.On("RemoveFinding", ctx, "A1", "F1").Return(fault.ErrNotFound)

	saved, err := svc.AddFinding(ctx, "A1", finding.Draft{
		Title:    "snare",
		Severity: finding.SeveritySevere,
		Position: field.At(14.6351, -90.5071),
	})
	require.NoError(t, err)
	require.Equal(t, "F1", saved.ID)
	require.Equal(t, "A1", sent.ActivityID)
	require.Equal(t, "r1", sent.RangerID)
	require.Equal(t, finding.StatusReported, sent.Status)
	require.NotEmpty(t, sent.ClientRef)

	buf, _ := svc.Snapshot("A1")
	require.Len(t, buf.Findings, 1)

	// Already gone server-side still clears it locally.
	require.NoError(t, svc.RemoveFinding(ctx, "A1", "F1"))
	buf, _ = svc.Snapshot("A1")
	require.Empty(t, buf.Findings)
}

func TestSessionService_Evidence_LocalOnly(t *testing.T) {
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	e, err := svc.AddEvidence("A1", session.EvidenceInput{URL: "file:///a.jpg", Category: "damage"})
	require.NoError(t, err)
	require.NotEmpty(t, e.ClientRef)
	require.Equal(t, fixedNow, e.CapturedAt)

	pending := svc.Pending("A1")
	require.Len(t, pending.Evidence, 1)

	require.ErrorIs(t, svc.RemoveEvidence("A1", "nope"), session.ErrItemNotFound)
	require.NoError(t, svc.RemoveEvidence("A1", e.ClientRef))
	require.Empty(t, svc.Pending("A1").Evidence)

	_, err = svc.AddEvidence("A1", session.EvidenceInput{})
	require.ErrorIs(t, err, activity.ErrMissingEvidenceURL)
	require.Empty(t, remote.Calls)
}

func TestSessionService_Resume_RestoresRoutePoints(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)

	point := activity.RoutePoint{ID: "P1", ActivityID: "A1", Latitude: 14.6350, Longitude: -90.5070, RecordedAt: fixedNow}
	remote.On("FetchActiveInProgress", ctx, "r1").Return(&activity.Resumable{
		Activity:    runningPatrol("A1"),
		RoutePoints: []activity.RoutePoint{point},
	}, nil)

	buf, ok, err := svc.Resume(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, buf.Resumed)
	require.Equal(t, []activity.RoutePoint{point}, buf.RoutePoints)
	require.Empty(t, buf.Evidence)
	require.Empty(t, buf.Findings)

	again, ok, err := svc.Resume(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, buf, again)
}

func TestSessionService_Resume_KeepsLocalEvidence(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))
	_, err := svc.AddEvidence("A1", session.EvidenceInput{URL: "file:///a.jpg"})
	require.NoError(t, err)

	remote.On("FetchActiveInProgress", ctx, "r1").Return(&activity.Resumable{Activity: runningPatrol("A1")}, nil)

	buf, ok, err := svc.Resume(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, buf.Evidence, 1)
	require.NotNil(t, buf.RoutePoints)
}

func TestSessionService_Resume_Nothing(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A7"))

	remote.On("FetchActiveInProgress", ctx, "r1").Return(nil, nil)

	for i := 0; i < 3; i++ {
		_, ok, err := svc.Resume(ctx, "r1")
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.Empty(t, svc.Active())
	remote.AssertNumberOfCalls(t, "FetchActiveInProgress", 3)
}

func TestSessionService_Resume_NonPatrol(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)

	a := runningPatrol("A3")
	a.Kind = activity.KindMaintenance
	remote.On("FetchActiveInProgress", ctx, "r1").Return(&activity.Resumable{Activity: a}, nil)

	_, ok, err := svc.Resume(ctx, "r1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, svc.Active())
}

func TestSessionService_Resume_Errors(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)

	_, _, err := svc.Resume(ctx, " ")
	require.ErrorIs(t, err, session.ErrMissingRanger)

	remote.On("FetchActiveInProgress", ctx, "r1").Return(nil, fault.ErrSessionExpired)
	_, _, err = svc.Resume(ctx, "r1")
	require.ErrorIs(t, err, fault.ErrSessionExpired)
}

func TestSessionService_LoadFindings(t *testing.T) {
	ctx := context.Background()
	remote := &mocks.Remote{}
	svc := newService(remote)
	svc.Open(runningPatrol("A1"))

	list := []finding.Finding{{ID: "F1", ActivityID: "A1"}, {ID: "F2", ActivityID: "A1"}}
	remote.On("ListActivityFindings", ctx, "A1").Return(list, nil)

	got, err := svc.LoadFindings(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, list, got)
	buf, _ := svc.Snapshot("A1")
	require.Len(t, buf.Findings, 2)
	require.Empty(t, svc.Pending("A1").Findings)
}

func TestSessionService_AbandonAndClear(t *testing.T) {
	svc := newService(&mocks.Remote{})
	svc.Open(runningPatrol("A1"))
	svc.Open(runningPatrol("A2"))
	_, err := svc.AddEvidence("A1", session.EvidenceInput{URL: "file:///a.jpg"})
	require.NoError(t, err)

	lost, err := svc.Abandon("A1")
	require.NoError(t, err)
	require.Equal(t, 1, lost)
	_, err = svc.Abandon("A1")
	require.ErrorIs(t, err, session.ErrNoSession)

	require.Len(t, svc.Active(), 1)
	svc.Clear()
	require.Empty(t, svc.Active())
}
