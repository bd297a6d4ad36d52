// Package testserver runs the reference store over in-memory SQLite for client tests.
package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/fieldwork/internal/auth"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/events"
	"github.com/rpggio/fieldwork/internal/sqlite"
	"github.com/rpggio/fieldwork/internal/storeapi"
	"github.com/stretchr/testify/require"
)

// TestServer is a running reference store.
type TestServer struct {
	Server     *httptest.Server
	DB         *sqlite.DB
	Activities *sqlite.ActivityRepository
	Findings   *sqlite.FindingRepository
	Events     *Recorder
	Auth       auth.Config
}

// New starts a store server that lives until the test ends.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))

	ts := &TestServer{
		DB:         db,
		Activities: sqlite.NewActivityRepository(db),
		Findings:   sqlite.NewFindingRepository(db),
		Events:     &Recorder{},
		Auth:       auth.Config{Secret: "test-secret", Issuer: "fieldwork-test", TTL: time.Hour},
	}
	ts.Server = httptest.NewServer(storeapi.NewServer(storeapi.Options{
		Activities: ts.Activities,
		Findings:   ts.Findings,
		Publisher:  ts.Events,
		Resolver:   storeapi.JWTResolver{Config: ts.Auth},
	}))

	t.Cleanup(func() {
		ts.Server.Close()
		_ = db.Close()
	})

	return ts
}

// URL is the server's base URL.
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// Token issues a valid bearer token for rangerID.
func (ts *TestServer) Token(t *testing.T, rangerID string) string {
	t.Helper()
	token, err := auth.Issue(ts.Auth, rangerID, time.Now())
	require.NoError(t, err)
	return token
}

// Schedule seeds a scheduled activity.
func (ts *TestServer) Schedule(t *testing.T, id, rangerID string, kind activity.Kind) activity.Activity {
	t.Helper()
	a, err := ts.Activities.Schedule(context.Background(), activity.Activity{
		ID:            id,
		Kind:          kind,
		RangerID:      rangerID,
		ScheduledDate: time.Now().UTC().Format(time.DateOnly),
	})
	require.NoError(t, err)
	return a
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types lists the types of the events published so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
