package storeapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/events"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/store"
)

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	if err := s.ownRanger(r); err != nil {
		writeError(w, s.logger, err)
		return
	}
	list, err := s.activities.ListByRanger(r.Context(), s.ranger(r))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, store.ActivityList{Activities: list})
}

func (s *Server) inProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.ownRanger(r); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.activities.InProgress(r.Context(), s.ranger(r))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	body := store.InProgressBody{RoutePoints: []activity.RoutePoint{}}
	if res != nil {
		body.Activity = &res.Activity
		body.RoutePoints = res.RoutePoints
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) scheduleActivity(w http.ResponseWriter, r *http.Request) {
	var a activity.Activity
	if err := decodeBody(w, r, &a); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if a.RangerID == "" {
		a.RangerID = s.ranger(r)
	}
	if a.RangerID != s.ranger(r) {
		writeError(w, s.logger, forbidden("ranger", a.RangerID))
		return
	}
	if a.State() != activity.StateScheduled {
		writeError(w, s.logger, fmt.Errorf("%w: new activities start scheduled", fault.ErrValidation))
		return
	}
	created, err := s.activities.Schedule(r.Context(), a)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) startActivity(w http.ResponseWriter, r *http.Request) {
	var stamp activity.Stamp
	if err := decodeBody(w, r, &stamp); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := stamp.Validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	started, err := s.activities.Start(r.Context(), a.ID, stamp)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.logger.Info("activity started", "activity_id", a.ID, "ranger_id", a.RangerID)
	s.publish(r.Context(), events.Event{
		Type:       events.ActivityStarted,
		RangerID:   a.RangerID,
		ActivityID: a.ID,
		Payload:    started,
	})
	writeJSON(w, http.StatusOK, started)
}

func (s *Server) finishActivity(w http.ResponseWriter, r *http.Request) {
	var body store.FinishBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := validateFinish(body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	done, err := s.activities.Finish(r.Context(), activity.FinishRequest{
		ActivityID:   a.ID,
		End:          body.Stamp,
		Observations: body.Observations,
		Findings:     body.Findings,
		Evidence:     body.Evidence,
		RoutePoints:  body.RoutePoints,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if a.State() == activity.StateInProgress {
		s.logger.Info("activity completed", "activity_id", a.ID, "findings", len(body.Findings),
			"evidence", len(body.Evidence), "route_points", len(body.RoutePoints))
		s.publish(r.Context(), events.Event{
			Type:       events.ActivityCompleted,
			RangerID:   a.RangerID,
			ActivityID: a.ID,
			Payload:    done,
		})
	}
	writeJSON(w, http.StatusOK, done)
}

func validateFinish(body store.FinishBody) error {
	if err := body.Stamp.Validate(); err != nil {
		return err
	}
	for _, f := range body.Findings {
		if err := f.Validate(); err != nil {
			return err
		}
		if f.ClientRef == "" {
			return fmt.Errorf("%w: bundled finding without client reference", fault.ErrValidation)
		}
	}
	for _, e := range body.Evidence {
		if err := e.Validate(); err != nil {
			return err
		}
		if e.ClientRef == "" {
			return fmt.Errorf("%w: bundled evidence without client reference", fault.ErrValidation)
		}
	}
	for _, p := range body.RoutePoints {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) listRoutePoints(w http.ResponseWriter, r *http.Request) {
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	points, err := s.activities.RoutePoints(r.Context(), a.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, store.RoutePointList{RoutePoints: points})
}

func (s *Server) addRoutePoint(w http.ResponseWriter, r *http.Request) {
	var p activity.RoutePoint
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	saved, err := s.activities.AddRoutePoint(r.Context(), a.ID, p)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) removeRoutePoint(w http.ResponseWriter, r *http.Request) {
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.activities.RemoveRoutePoint(r.Context(), a.ID, chi.URLParam(r, "pointID")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listActivityFindings(w http.ResponseWriter, r *http.Request) {
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	list, err := s.findings.ByActivity(r.Context(), a.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, store.FindingList{Findings: list})
}

func (s *Server) addActivityFinding(w http.ResponseWriter, r *http.Request) {
	var f finding.Finding
	if err := decodeBody(w, r, &f); err != nil {
		writeError(w, s.logger, err)
		return
	}
	f.Status = finding.StatusReported
	f.ResolvedAt = nil
	if err := f.Validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	saved, err := s.findings.Attach(r.Context(), a.ID, a.RangerID, f)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.publish(r.Context(), events.Event{
		Type:       events.FindingReported,
		RangerID:   a.RangerID,
		ActivityID: a.ID,
		FindingID:  saved.ID,
		Payload:    saved,
	})
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) removeActivityFinding(w http.ResponseWriter, r *http.Request) {
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.findings.Detach(r.Context(), a.ID, chi.URLParam(r, "findingID")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEvidence(w http.ResponseWriter, r *http.Request) {
	a, err := s.ownActivity(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	list, err := s.activities.Evidence(r.Context(), a.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, store.EvidenceList{Evidence: list})
}
