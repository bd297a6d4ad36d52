package storeapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/events"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/store"
)

func (s *Server) listIndependentFindings(w http.ResponseWriter, r *http.Request) {
	if err := s.ownRanger(r); err != nil {
		writeError(w, s.logger, err)
		return
	}
	q := r.URL.Query()
	if q.Get("independent") != "true" {
		writeError(w, s.logger, fmt.Errorf("%w: only independent findings can be listed per ranger", fault.ErrValidation))
		return
	}
	day := s.now().UTC()
	if raw := q.Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, s.logger, fmt.Errorf("%w: date must be YYYY-MM-DD", fault.ErrValidation))
			return
		}
		day = parsed
	}

	list, err := s.findings.Independent(r.Context(), s.ranger(r), day)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, store.FindingList{Findings: list})
}

func (s *Server) reportFinding(w http.ResponseWriter, r *http.Request) {
	var f finding.Finding
	if err := decodeBody(w, r, &f); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if f.RangerID != "" && f.RangerID != s.ranger(r) {
		writeError(w, s.logger, forbidden("ranger", f.RangerID))
		return
	}
	f.RangerID = s.ranger(r)
	f.ActivityID = ""
	f.Status = finding.StatusReported
	f.ResolvedAt = nil
	if err := f.Validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}

	saved, err := s.findings.Report(r.Context(), f)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.logger.Info("finding reported", "finding_id", saved.ID, "severity", saved.Severity)
	s.publish(r.Context(), events.Event{
		Type:      events.FindingReported,
		RangerID:  saved.RangerID,
		FindingID: saved.ID,
		Payload:   saved,
	})
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) getFinding(w http.ResponseWriter, r *http.Request) {
	f, err := s.ownFinding(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) transitionFinding(w http.ResponseWriter, r *http.Request) {
	var body store.TransitionBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if !body.To.Valid() {
		writeError(w, s.logger, finding.ErrInvalidStatus)
		return
	}
	f, err := s.ownFinding(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	updated, err := s.findings.Transition(r.Context(), f.ID, body.To)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if updated.Status == finding.StatusResolved {
		s.publish(r.Context(), events.Event{
			Type:       events.FindingResolved,
			RangerID:   updated.RangerID,
			ActivityID: updated.ActivityID,
			FindingID:  updated.ID,
			Payload:    updated,
		})
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) addFollowUp(w http.ResponseWriter, r *http.Request) {
	var entry finding.FollowUp
	if err := decodeBody(w, r, &entry); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := entry.Validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}
	f, err := s.ownFinding(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	updated, err := s.findings.AddFollowUp(r.Context(), f.ID, entry)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
