// Package activity implements the activity lifecycle: Scheduled, then InProgress, then Completed.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/observability"
)

// Service handles activity lifecycle operations.
type Service struct {
	store    Store
	sessions Sessions
	locks    *keyedMutex
	newRef   func() string
	logger   *slog.Logger
}

// NewService creates a new activity service.
func NewService(store Store, sessions Sessions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:    store,
		sessions: sessions,
		locks:    newKeyedMutex(),
		newRef:   uuid.NewString,
		logger:   logger,
	}
}

// StartInput describes a start command.
type StartInput struct {
	ActivityID string
	Time       string
	Position   field.Position
}

// FinishInput describes a finish command with its bundled items.
type FinishInput struct {
	ActivityID   string
	Time         string
	Position     field.Position
	Observations string
	Findings     []finding.Finding
	Evidence     []Evidence
	RoutePoints  []RoutePoint
}

// List returns the ranger's activities, optionally filtered.
func (s *Service) List(ctx context.Context, rangerID string, opts ListOptions) ([]Activity, error) {
	all, err := s.store.ListActivities(ctx, rangerID)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	if opts.State == "" && opts.Kind == "" {
		return all, nil
	}
	filtered := make([]Activity, 0, len(all))
	for _, a := range all {
		if opts.State != "" && a.State() != opts.State {
			continue
		}
		if opts.Kind != "" && a.Kind != opts.Kind {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}

// Get loads one activity.
func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	if strings.TrimSpace(id) == "" {
		return Activity{}, ErrMissingID
	}
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, fmt.Errorf("loading activity: %w", err)
	}
	return a, nil
}

// Start moves a scheduled activity to in progress and opens a session buffer for patrols.
func (s *Service) Start(ctx context.Context, in StartInput) (started Activity, err error) {
	defer func() { observability.Transition("activity", string(StateInProgress), err) }()

	if strings.TrimSpace(in.ActivityID) == "" {
		return Activity{}, ErrMissingID
	}
	stamp, err := NewStamp(in.Time, in.Position)
	if err != nil {
		return Activity{}, err
	}

	unlock := s.locks.Lock(in.ActivityID)
	defer unlock()

	current, err := s.store.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return Activity{}, fmt.Errorf("loading activity: %w", err)
	}
	// A start whose response was lost has already landed with this stamp.
	if recorded, ok := current.StartStamp(); ok && current.State() == StateInProgress && recorded == stamp {
		if current.Kind.IsPatrol() {
			s.sessions.Open(current)
		}
		s.logger.Info("activity start replayed", "activity_id", current.ID, "time", stamp.Time)
		return current, nil
	}
	if err := ValidateTransition(current.State(), StateInProgress); err != nil {
		return Activity{}, fmt.Errorf("start from %s: %w", current.State(), err)
	}

	started, err = s.store.StartActivity(ctx, in.ActivityID, stamp)
	if err != nil {
		return Activity{}, fmt.Errorf("starting activity: %w", err)
	}
	if started.Kind.IsPatrol() {
		s.sessions.Open(started)
	}

	s.logger.Info("activity started", "activity_id", started.ID, "kind", started.Kind, "time", stamp.Time)
	return started, nil
}

// Finish completes an in-progress activity in one finalize call and discards its buffer.
// Items the store already confirmed are not re-sent; buffered items are deduplicated by client reference.
// When the activity is already completed with the same end stamp, or a buffer is still open for it,
// the finalize is replayed under the recorded stamp so a retry after a lost response succeeds.
func (s *Service) Finish(ctx context.Context, in FinishInput) (done Activity, err error) {
	defer func() { observability.Transition("activity", string(StateCompleted), err) }()

	if strings.TrimSpace(in.ActivityID) == "" {
		return Activity{}, ErrMissingID
	}
	stamp, err := NewStamp(in.Time, in.Position)
	if err != nil {
		return Activity{}, err
	}
	if err := validateBundles(in); err != nil {
		return Activity{}, err
	}

	unlock := s.locks.Lock(in.ActivityID)
	defer unlock()

	current, err := s.store.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return Activity{}, fmt.Errorf("loading activity: %w", err)
	}
	end, observations := stamp, strings.TrimSpace(in.Observations)
	replay := false
	if prev, ok := current.Phase.(Completed); ok && (prev.End == stamp || s.sessions.Has(in.ActivityID)) {
		end, observations, replay = prev.End, prev.Observations, true
	} else if err := ValidateTransition(current.State(), StateCompleted); err != nil {
		return Activity{}, fmt.Errorf("finish from %s: %w", current.State(), err)
	}

	in.Findings = derivedRefs(in.ActivityID, "finding", in.Findings,
		func(f *finding.Finding) *string { return &f.ClientRef },
		func(f finding.Finding) string { return f.Title + "|" + string(f.Severity) })
	in.Evidence = derivedRefs(in.ActivityID, "evidence", in.Evidence,
		func(e *Evidence) *string { return &e.ClientRef },
		func(e Evidence) string { return e.URL })
	in.RoutePoints = derivedRefs(in.ActivityID, "route_point", in.RoutePoints,
		func(p *RoutePoint) *string { return &p.ClientRef },
		func(p RoutePoint) string { return fmt.Sprintf("%f,%f", p.Latitude, p.Longitude) })

	pending := s.sessions.Pending(in.ActivityID)
	req := FinishRequest{
		ActivityID:   in.ActivityID,
		End:          end,
		Observations: observations,
		Findings: collect(s.newRef, finding.Finding.Persisted,
			func(f *finding.Finding) *string { return &f.ClientRef }, in.Findings, pending.Findings),
		Evidence: collect(s.newRef, Evidence.Persisted,
			func(e *Evidence) *string { return &e.ClientRef }, in.Evidence, pending.Evidence),
		RoutePoints: collect(s.newRef, RoutePoint.Persisted,
			func(p *RoutePoint) *string { return &p.ClientRef }, in.RoutePoints, pending.RoutePoints),
	}

	done, err = s.store.FinishActivity(ctx, req)
	if err != nil {
		return Activity{}, fmt.Errorf("finishing activity: %w", err)
	}
	s.sessions.Discard(in.ActivityID)

	s.logger.Info("activity completed",
		"activity_id", done.ID,
		"replay", replay,
		"findings", len(req.Findings),
		"evidence", len(req.Evidence),
		"route_points", len(req.RoutePoints),
	)
	return done, nil
}

func validateBundles(in FinishInput) error {
	for _, f := range in.Findings {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for _, e := range in.Evidence {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, p := range in.RoutePoints {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// derivedRefs gives bundled items without a client reference one derived from the activity,
// their position in the bundle and their content, so resending the same bundle stores each item once.
func derivedRefs[T any](activityID, group string, items []T, ref func(*T) *string, key func(T) string) []T {
	if len(items) == 0 {
		return items
	}
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		r := ref(&out[i])
		if *r != "" {
			continue
		}
		name := fmt.Sprintf("%s/%s/%d/%s", activityID, group, i, key(out[i]))
		*r = uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
	}
	return out
}

// collect keeps the unpersisted items of each group, assigns missing client references
// and drops repeats of a reference already seen.
func collect[T any](newRef func() string, persisted func(T) bool, ref func(*T) *string, groups ...[]T) []T {
	seen := make(map[string]struct{})
	var out []T
	for _, group := range groups {
		for _, item := range group {
			if persisted(item) {
				continue
			}
			r := ref(&item)
			if *r == "" {
				*r = newRef()
			}
			if _, dup := seen[*r]; dup {
				continue
			}
			seen[*r] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
