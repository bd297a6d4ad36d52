// Package storeapi serves the reference remote activity store over HTTP.
package storeapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/events"
	"github.com/rpggio/fieldwork/internal/observability"
)

// ActivityStore persists activities and their route, evidence and lifecycle.
type ActivityStore interface {
	Schedule(ctx context.Context, a activity.Activity) (activity.Activity, error)
	Get(ctx context.Context, id string) (activity.Activity, error)
	ListByRanger(ctx context.Context, rangerID string) ([]activity.Activity, error)
	InProgress(ctx context.Context, rangerID string) (*activity.Resumable, error)
	Start(ctx context.Context, id string, stamp activity.Stamp) (activity.Activity, error)
	Finish(ctx context.Context, req activity.FinishRequest) (activity.Activity, error)
	RoutePoints(ctx context.Context, activityID string) ([]activity.RoutePoint, error)
	AddRoutePoint(ctx context.Context, activityID string, p activity.RoutePoint) (activity.RoutePoint, error)
	RemoveRoutePoint(ctx context.Context, activityID, pointID string) error
	Evidence(ctx context.Context, activityID string) ([]activity.Evidence, error)
}

// FindingStore persists findings, attached or independent.
type FindingStore interface {
	Report(ctx context.Context, f finding.Finding) (finding.Finding, error)
	Get(ctx context.Context, id string) (finding.Finding, error)
	Independent(ctx context.Context, rangerID string, day time.Time) ([]finding.Finding, error)
	ByActivity(ctx context.Context, activityID string) ([]finding.Finding, error)
	Attach(ctx context.Context, activityID, rangerID string, f finding.Finding) (finding.Finding, error)
	Detach(ctx context.Context, activityID, findingID string) error
	Transition(ctx context.Context, id string, to finding.Status) (finding.Finding, error)
	AddFollowUp(ctx context.Context, id string, entry finding.FollowUp) (finding.Finding, error)
}

// Server wires HTTP handlers.
type Server struct {
	activities ActivityStore
	findings   FindingStore
	publisher  events.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// Options carries the server's collaborators. Publisher and Logger are optional.
type Options struct {
	Activities ActivityStore
	Findings   FindingStore
	Publisher  events.Publisher
	Resolver   RangerResolver
	Logger     *slog.Logger
}

// NewServer creates the HTTP router. /health and /metrics are served without authentication.
func NewServer(opts Options) *chi.Mux {
	srv := &Server{
		activities: opts.Activities,
		findings:   opts.Findings,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
		now:        time.Now,
	}
	if srv.publisher == nil {
		srv.publisher = events.Noop{}
	}
	if srv.logger == nil {
		srv.logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", observability.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Resolver))

		r.Route("/rangers/{rangerID}", func(r chi.Router) {
			r.Get("/activities", srv.listActivities)
			r.Get("/activities/in-progress", srv.inProgress)
			r.Get("/findings", srv.listIndependentFindings)
		})

		r.Post("/activities", srv.scheduleActivity)
		r.Route("/activities/{id}", func(r chi.Router) {
			r.Get("/", srv.getActivity)
			r.Post("/start", srv.startActivity)
			r.Post("/finish", srv.finishActivity)
			r.Get("/route-points", srv.listRoutePoints)
			r.Post("/route-points", srv.addRoutePoint)
			r.Delete("/route-points/{pointID}", srv.removeRoutePoint)
			r.Get("/findings", srv.listActivityFindings)
			r.Post("/findings", srv.addActivityFinding)
			r.Delete("/findings/{findingID}", srv.removeActivityFinding)
			r.Get("/evidence", srv.listEvidence)
		})

		r.Post("/findings", srv.reportFinding)
		r.Route("/findings/{id}", func(r chi.Router) {
			r.Get("/", srv.getFinding)
			r.Post("/transition", srv.transitionFinding)
			r.Post("/follow-ups", srv.addFollowUp)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("event not published", "type", e.Type, "error", err)
	}
}

func (s *Server) ranger(r *http.Request) string {
	rangerID, _ := RangerFromContext(r.Context())
	return rangerID
}

// ownRanger rejects requests for another ranger's collection.
func (s *Server) ownRanger(r *http.Request) error {
	if id := chi.URLParam(r, "rangerID"); id != s.ranger(r) {
		return forbidden("ranger", id)
	}
	return nil
}

// ownActivity loads the activity named in the path and checks it belongs to the caller.
func (s *Server) ownActivity(r *http.Request) (activity.Activity, error) {
	id := chi.URLParam(r, "id")
	a, err := s.activities.Get(r.Context(), id)
	if err != nil {
		return activity.Activity{}, err
	}
	if a.RangerID != s.ranger(r) {
		return activity.Activity{}, forbidden("activity", id)
	}
	return a, nil
}

func (s *Server) ownFinding(r *http.Request) (finding.Finding, error) {
	id := chi.URLParam(r, "id")
	f, err := s.findings.Get(r.Context(), id)
	if err != nil {
		return finding.Finding{}, err
	}
	if f.RangerID != s.ranger(r) {
		return finding.Finding{}, forbidden("finding", id)
	}
	return f, nil
}
