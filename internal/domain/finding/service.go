// Package finding manages findings reported outside any activity and their follow-up workflow.
package finding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/fieldwork/internal/observability"
)

// Service handles finding operations.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a new finding service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, now: time.Now, logger: logger}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report persists an independent finding for the ranger.
func (s *Service) Report(ctx context.Context, rangerID string, draft Draft) (Finding, error) {
	f, err := draft.Build(s.now())
	if err != nil {
		return Finding{}, err
	}
	f.RangerID = rangerID

	created, err := s.store.ReportFinding(ctx, f)
	if err != nil {
		return Finding{}, fmt.Errorf("reporting finding: %w", err)
	}
	s.logger.Info("finding reported", "finding_id", created.ID, "severity", created.Severity)
	return created, nil
}

// Get loads one finding.
func (s *Service) Get(ctx context.Context, id string) (Finding, error) {
	if strings.TrimSpace(id) == "" {
		return Finding{}, ErrMissingID
	}
	f, err := s.store.GetFinding(ctx, id)
	if err != nil {
		return Finding{}, fmt.Errorf("loading finding: %w", err)
	}
	return f, nil
}

// ListIndependentToday lists the ranger's findings from today that have no activity link.
func (s *Service) ListIndependentToday(ctx context.Context, rangerID string) ([]Finding, error) {
	list, err := s.store.ListIndependentFindings(ctx, rangerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("listing independent findings: %w", err)
	}
	return list, nil
}

// Transition moves a finding along its workflow.
func (s *Service) Transition(ctx context.Context, id string, to Status) (f Finding, err error) {
	defer func() { observability.Transition("finding", string(to), err) }()

	if strings.TrimSpace(id) == "" {
		return Finding{}, ErrMissingID
	}
	if !to.Valid() {
		return Finding{}, ErrInvalidStatus
	}
	current, err := s.store.GetFinding(ctx, id)
	if err != nil {
		return Finding{}, fmt.Errorf("loading finding: %w", err)
	}
	if err := ValidateTransition(current.Status, to); err != nil {
		return Finding{}, fmt.Errorf("%s -> %s: %w", current.Status, to, err)
	}
	updated, err := s.store.TransitionFinding(ctx, id, to)
	if err != nil {
		return Finding{}, fmt.Errorf("transitioning finding: %w", err)
	}
	s.logger.Info("finding transitioned", "finding_id", id, "from", current.Status, "to", to)
	return updated, nil
}

// AddFollowUp appends an entry to a finding's follow-up log.
func (s *Service) AddFollowUp(ctx context.Context, id, action, actor, notes string) (Finding, error) {
	if strings.TrimSpace(id) == "" {
		return Finding{}, ErrMissingID
	}
	entry := FollowUp{At: s.now().UTC(), Action: action, Actor: actor, Notes: notes}
	if err := entry.Validate(); err != nil {
		return Finding{}, err
	}
	updated, err := s.store.AddFollowUp(ctx, id, entry)
	if err != nil {
		return Finding{}, fmt.Errorf("adding follow-up: %w", err)
	}
	return updated, nil
}
