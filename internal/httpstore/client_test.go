package httpstore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/httpstore"
	"github.com/rpggio/fieldwork/internal/testserver"
	"github.com/stretchr/testify/require"
)

type tokens struct {
	mu    sync.Mutex
	token string
}

func (s *tokens) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *tokens) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

var (
	start = activity.Stamp{Time: "07:30", Coordinates: field.Coordinates{Latitude: 10.3, Longitude: -85.1}}
	end   = activity.Stamp{Time: "11:45", Coordinates: field.Coordinates{Latitude: 10.4, Longitude: -85.2}}
)

func newClient(t *testing.T, ts *testserver.TestServer, ranger string) (*httpstore.Client, *tokens) {
	t.Helper()
	src := &tokens{token: ts.Token(t, ranger)}
	return httpstore.New(httpstore.Options{BaseURL: ts.URL()}, src), src
}

func TestClient_ActivityLifecycle(t *testing.T) {
	ts := testserver.New(t)
	ts.Schedule(t, "a1", "r1", activity.KindPatrol)
	client, _ := newClient(t, ts, "r1")
	ctx := context.Background()

	list, err := client.ListActivities(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, activity.StateScheduled, list[0].State())

	none, err := client.FetchActiveInProgress(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, none)

	started, err := client.StartActivity(ctx, "a1", start)
	require.NoError(t, err)
	require.Equal(t, activity.InProgress{Start: start}, started.Phase)

	_, err = client.StartActivity(ctx, "a1", start)
	require.ErrorIs(t, err, fault.ErrIllegalTransition)

	point, err := client.AddRoutePoint(ctx, "a1", activity.RoutePoint{
		ClientRef: "p-1", Latitude: 10.3, Longitude: -85.1, RecordedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, point.ID)

	current, err := client.FetchActiveInProgress(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Len(t, current.RoutePoints, 1)

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	req := activity.FinishRequest{
		ActivityID:   "a1",
		End:          end,
		Observations: "tracks near the river",
		Findings: []finding.Finding{{
			ClientRef: "f-1", Title: "tracks", Severity: finding.SeverityLow, Status: finding.StatusReported,
			Coordinates: field.Coordinates{Latitude: 10.35, Longitude: -85.15}, ReportedAt: at,
		}},
		Evidence: []activity.Evidence{{ClientRef: "e-1", URL: "https://photos/tracks.jpg", CapturedAt: at}},
	}
	done, err := client.FinishActivity(ctx, req)
	require.NoError(t, err)
	require.Equal(t, activity.StateCompleted, done.State())

	// A retried finish is accepted and stores nothing twice.
	_, err = client.FinishActivity(ctx, req)
	require.NoError(t, err)

	findings, err := client.ListActivityFindings(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, findings, 1)

	evidence, err := client.ListEvidence(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, evidence, 1)

	require.ErrorIs(t, client.RemoveRoutePoint(ctx, "a1", point.ID), fault.ErrIllegalTransition)
}

func TestClient_IndependentFindings(t *testing.T) {
	ts := testserver.New(t)
	client, _ := newClient(t, ts, "r1")
	ctx := context.Background()
	now := time.Now().UTC()

	f, err := client.ReportFinding(ctx, finding.Finding{
		ClientRef: "f-9", Title: "broken fence", Severity: finding.SeverityModerate, Status: finding.StatusReported,
		Coordinates: field.Coordinates{Latitude: 9.1, Longitude: -84.1}, ReportedAt: now,
	})
	require.NoError(t, err)
	require.Equal(t, "r1", f.RangerID)

	list, err := client.ListIndependentFindings(ctx, "r1", now)
	require.NoError(t, err)
	require.Len(t, list, 1)

	f, err = client.AddFollowUp(ctx, f.ID, finding.FollowUp{Action: "called maintenance", Actor: "r1"})
	require.NoError(t, err)
	require.Len(t, f.FollowUps, 1)

	f, err = client.TransitionFinding(ctx, f.ID, finding.StatusResolved)
	require.NoError(t, err)
	require.NotNil(t, f.ResolvedAt)

	_, err = client.TransitionFinding(ctx, f.ID, finding.StatusInReview)
	require.ErrorIs(t, err, fault.ErrIllegalTransition)

	_, err = client.GetFinding(ctx, "missing")
	require.ErrorIs(t, err, fault.ErrNotFound)
}

func TestClient_SessionExpiry(t *testing.T) {
	ts := testserver.New(t)
	ts.Schedule(t, "a1", "r1", activity.KindPatrol)
	client, src := newClient(t, ts, "r1")
	ctx := context.Background()

	fired := 0
	client.OnSessionExpired(func() { fired++ })

	src.set("revoked-token")
	_, err := client.ListActivities(ctx, "r1")
	require.ErrorIs(t, err, fault.ErrSessionExpired)
	require.Equal(t, 1, fired)
	require.True(t, client.SessionExpired())

	// Mutations with the rejected token never reach the store.
	_, err = client.StartActivity(ctx, "a1", start)
	require.ErrorIs(t, err, fault.ErrSessionExpired)
	a, err := ts.Activities.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, activity.StateScheduled, a.State())

	_, err = client.ListActivities(ctx, "r1")
	require.ErrorIs(t, err, fault.ErrSessionExpired)
	require.Equal(t, 1, fired, "listeners fire once per rejected token")

	src.set(ts.Token(t, "r1"))
	require.False(t, client.SessionExpired())
	_, err = client.StartActivity(ctx, "a1", start)
	require.NoError(t, err)
}

func TestClient_NoToken(t *testing.T) {
	ts := testserver.New(t)
	client := httpstore.New(httpstore.Options{BaseURL: ts.URL()}, &tokens{})

	_, err := client.ListActivities(context.Background(), "r1")
	require.ErrorIs(t, err, fault.ErrSessionExpired)
}

func TestClient_TransportFailures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	client := httpstore.New(httpstore.Options{BaseURL: slow.URL, Timeout: 50 * time.Millisecond}, &tokens{token: "t"})
	_, err := client.GetActivity(context.Background(), "a1")
	require.ErrorIs(t, err, fault.ErrTimeout)
	require.True(t, fault.Retryable(err))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	client = httpstore.New(httpstore.Options{BaseURL: broken.URL}, &tokens{token: "t"})
	_, err = client.GetActivity(context.Background(), "a1")
	require.ErrorIs(t, err, fault.ErrNetwork)

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	client = httpstore.New(httpstore.Options{BaseURL: url}, &tokens{token: "t"})
	_, err = client.GetActivity(context.Background(), "a1")
	require.ErrorIs(t, err, fault.ErrNetwork)
}

func TestClient_InvalidRecords(t *testing.T) {
	responses := map[string]string{
		"/activities/bad-json":   `{"id":`,
		"/activities/bad-state":  `{"id":"a1","kind":"patrol","ranger_id":"r1","state":"scheduled","start":{"time":"08:00","lat":1,"lng":1}}`,
		"/activities/bad-kind":   `{"id":"a1","kind":"picnic","ranger_id":"r1","state":"scheduled"}`,
		"/activities/bad-coords": `{"id":"a1","kind":"patrol","ranger_id":"r1","state":"in_progress","start":{"time":"08:00","lat":123,"lng":1}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responses[r.URL.Path]))
	}))
	t.Cleanup(srv.Close)

	client := httpstore.New(httpstore.Options{BaseURL: srv.URL}, &tokens{token: "t"})
	for _, id := range []string{"bad-json", "bad-state", "bad-kind", "bad-coords"} {
		_, err := client.GetActivity(context.Background(), id)
		require.ErrorIs(t, err, fault.ErrInvalidRecord, id)
	}
}
