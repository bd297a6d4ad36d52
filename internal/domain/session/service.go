// Package session holds the field session buffers of in-progress activities and restores them after a restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/fault"
)

// Service owns the field session buffers of the current process.
type Service struct {
	store   Store
	mu      sync.Mutex
	buffers map[string]*Buffer
	now     func() time.Time
	newRef  func() string
	logger  *slog.Logger
}

// NewService creates a new session service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:   store,
		buffers: make(map[string]*Buffer),
		now:     time.Now,
		newRef:  uuid.NewString,
		logger:  logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Open seeds an empty buffer for a freshly started activity. An existing buffer keeps its items
// and only takes the new activity record.
func (s *Service) Open(a activity.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[a.ID]; ok {
		b.Activity = a
		return
	}
	s.buffers[a.ID] = newBuffer(a, s.now(), false)
	s.logger.Debug("field session opened", "activity_id", a.ID)
}

// Has reports whether a buffer is open for the activity.
func (s *Service) Has(activityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buffers[activityID]
	return ok
}

// Resume asks the store whether the ranger has an activity in progress and rebuilds its buffer.
// Route points come from the store; findings and evidence start empty. Calling it again is harmless:
// an existing buffer keeps its local evidence and gets the server's route points.
// The returned bool is false when there is nothing to resume.
func (s *Service) Resume(ctx context.Context, rangerID string) (Buffer, bool, error) {
	if strings.TrimSpace(rangerID) == "" {
		return Buffer{}, false, ErrMissingRanger
	}
	res, err := s.store.FetchActiveInProgress(ctx, rangerID)
	if err != nil {
		return Buffer{}, false, fmt.Errorf("fetching in-progress activity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.buffers {
		if b.Activity.RangerID != rangerID {
			continue
		}
		if res == nil || res.Activity.ID != id {
			delete(s.buffers, id)
			s.logger.Info("dropped stale field session", "activity_id", id, "lost_evidence", len(b.Evidence))
		}
	}

	if res == nil {
		return Buffer{}, false, nil
	}
	if !res.Activity.Kind.IsPatrol() {
		s.logger.Info("in-progress activity has no field session", "activity_id", res.Activity.ID, "kind", res.Activity.Kind)
		return Buffer{}, false, nil
	}

	points := slices.Clone(res.RoutePoints)
	if points == nil {
		points = []activity.RoutePoint{}
	}
	b, ok := s.buffers[res.Activity.ID]
	if !ok {
		b = newBuffer(res.Activity, s.now(), true)
		s.buffers[res.Activity.ID] = b
	}
	b.Activity = res.Activity
	b.RoutePoints = points
	b.Resumed = true

	s.logger.Info("field session resumed",
		"activity_id", res.Activity.ID,
		"route_points", len(points),
		"kept_evidence", len(b.Evidence),
	)
	return b.clone(), true, nil
}

// AddRoutePoint persists a GPS fix and appends the store-confirmed point to the buffer.
// Retrying with the same client reference stores the point once.
func (s *Service) AddRoutePoint(ctx context.Context, activityID string, in RoutePointInput) (activity.RoutePoint, error) {
	coords, err := in.Position.Coordinates()
	if err != nil {
		return activity.RoutePoint{}, err
	}
	recordedAt := in.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}
	ref := strings.TrimSpace(in.ClientRef)
	if ref == "" {
		ref = s.newRef()
	}
	p := activity.RoutePoint{
		ActivityID: activityID,
		ClientRef:  ref,
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		RecordedAt: recordedAt.UTC(),
		Note:       strings.TrimSpace(in.Note),
	}
	if err := p.Validate(); err != nil {
		return activity.RoutePoint{}, err
	}
	if !s.Has(activityID) {
		return activity.RoutePoint{}, ErrNoSession
	}

	saved, err := s.store.AddRoutePoint(ctx, activityID, p)
	if err != nil {
		return activity.RoutePoint{}, fmt.Errorf("persisting route point: %w", err)
	}

	s.update(activityID, func(b *Buffer) {
		b.RoutePoints = upsert(b.RoutePoints, saved, func(p activity.RoutePoint) string { return p.ClientRef })
	})
	return saved, nil
}

// RemoveRoutePoint deletes a persisted point from the store and the buffer.
func (s *Service) RemoveRoutePoint(ctx context.Context, activityID, pointID string) error {
	if err := s.holds(activityID, func(b *Buffer) bool {
		return slices.ContainsFunc(b.RoutePoints, func(p activity.RoutePoint) bool { return p.ID == pointID })
	}); err != nil {
		return err
	}
	if err := s.store.RemoveRoutePoint(ctx, activityID, pointID); err != nil && !errors.Is(err, fault.ErrNotFound) {
		return fmt.Errorf("deleting route point: %w", err)
	}
	s.update(activityID, func(b *Buffer) {
		b.RoutePoints = slices.DeleteFunc(b.RoutePoints, func(p activity.RoutePoint) bool { return p.ID == pointID })
	})
	return nil
}

// AddFinding persists a finding linked to the activity and appends the confirmed record.
// A draft carrying a client reference already stored is not stored again.
func (s *Service) AddFinding(ctx context.Context, activityID string, draft finding.Draft) (finding.Finding, error) {
	f, err := draft.Build(s.now())
	if err != nil {
		return finding.Finding{}, err
	}
	b, ok := s.Snapshot(activityID)
	if !ok {
		return finding.Finding{}, ErrNoSession
	}
	f.ActivityID = activityID
	f.RangerID = b.Activity.RangerID
	if f.ClientRef == "" {
		f.ClientRef = s.newRef()
	}

	saved, err := s.store.AddFinding(ctx, activityID, f)
	if err != nil {
		return finding.Finding{}, fmt.Errorf("persisting finding: %w", err)
	}
	s.update(activityID, func(b *Buffer) {
		b.Findings = upsert(b.Findings, saved, func(f finding.Finding) string { return f.ClientRef })
	})
	return saved, nil
}

// RemoveFinding deletes a persisted finding from the store and the buffer.
func (s *Service) RemoveFinding(ctx context.Context, activityID, findingID string) error {
	if err := s.holds(activityID, func(b *Buffer) bool {
		return slices.ContainsFunc(b.Findings, func(f finding.Finding) bool { return f.ID == findingID })
	}); err != nil {
		return err
	}
	if err := s.store.RemoveFinding(ctx, activityID, findingID); err != nil && !errors.Is(err, fault.ErrNotFound) {
		return fmt.Errorf("deleting finding: %w", err)
	}
	s.update(activityID, func(b *Buffer) {
		b.Findings = slices.DeleteFunc(b.Findings, func(f finding.Finding) bool { return f.ID == findingID })
	})
	return nil
}

// AddEvidence appends an attachment locally; it reaches the store with the finish call.
func (s *Service) AddEvidence(activityID string, in EvidenceInput) (activity.Evidence, error) {
	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}
	e := activity.Evidence{
		ActivityID:  activityID,
		ClientRef:   s.newRef(),
		URL:         strings.TrimSpace(in.URL),
		Description: in.Description,
		Category:    in.Category,
		CapturedAt:  capturedAt.UTC(),
	}
	if err := e.Validate(); err != nil {
		return activity.Evidence{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[activityID]
	if !ok {
		return activity.Evidence{}, ErrNoSession
	}
	b.Evidence = append(b.Evidence, e)
	return e, nil
}

// RemoveEvidence drops a buffered attachment by client reference.
func (s *Service) RemoveEvidence(activityID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[activityID]
	if !ok {
		return ErrNoSession
	}
	before := len(b.Evidence)
	b.Evidence = slices.DeleteFunc(b.Evidence, func(e activity.Evidence) bool { return e.ClientRef == ref })
	if len(b.Evidence) == before {
		return ErrItemNotFound
	}
	return nil
}

// LoadFindings repopulates the buffer's findings from the activity's persisted list.
func (s *Service) LoadFindings(ctx context.Context, activityID string) ([]finding.Finding, error) {
	if !s.Has(activityID) {
		return nil, ErrNoSession
	}
	list, err := s.store.ListActivityFindings(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("loading activity findings: %w", err)
	}
	loaded := slices.Clone(list)
	if loaded == nil {
		loaded = []finding.Finding{}
	}
	s.update(activityID, func(b *Buffer) {
		b.Findings = loaded
	})
	return slices.Clone(loaded), nil
}

// Snapshot returns a copy of an activity's buffer.
func (s *Service) Snapshot(activityID string) (Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[activityID]
	if !ok {
		return Buffer{}, false
	}
	return b.clone(), true
}

// Active returns copies of every open buffer, oldest first.
func (s *Service) Active() []Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Buffer, 0, len(s.buffers))
	for _, b := range s.buffers {
		out = append(out, b.clone())
	}
	slices.SortFunc(out, func(a, b Buffer) int {
		if c := a.OpenedAt.Compare(b.OpenedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Activity.ID, b.Activity.ID)
	})
	return out
}

// Pending returns the buffered items the store has not confirmed.
func (s *Service) Pending(activityID string) activity.Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[activityID]
	if !ok {
		return activity.Pending{}
	}
	var out activity.Pending
	for _, f := range b.Findings {
		if !f.Persisted() {
			out.Findings = append(out.Findings, f)
		}
	}
	for _, e := range b.Evidence {
		if !e.Persisted() {
			out.Evidence = append(out.Evidence, e)
		}
	}
	for _, p := range b.RoutePoints {
		if !p.Persisted() {
			out.RoutePoints = append(out.RoutePoints, p)
		}
	}
	return out
}

// Discard drops an activity's buffer after it was finalized.
func (s *Service) Discard(activityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, activityID)
}

// Abandon drops a buffer without finishing the activity. Persisted items stay in the store;
// buffered evidence is lost. It returns how many evidence items were dropped.
func (s *Service) Abandon(activityID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[activityID]
	if !ok {
		return 0, ErrNoSession
	}
	delete(s.buffers, activityID)
	s.logger.Warn("field session abandoned", "activity_id", activityID, "lost_evidence", len(b.Evidence))
	return len(b.Evidence), nil
}

// Clear drops every buffer, as required when the session expires.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buffers) > 0 {
		s.logger.Warn("clearing field sessions", "count", len(s.buffers))
	}
	s.buffers = make(map[string]*Buffer)
}

func (s *Service) holds(activityID string, has func(*Buffer) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[activityID]
	if !ok {
		return ErrNoSession
	}
	if !has(b) {
		return ErrItemNotFound
	}
	return nil
}

func (s *Service) update(activityID string, fn func(*Buffer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[activityID]; ok {
		fn(b)
	}
}

// upsert replaces the item with the same client reference or appends it.
func upsert[T any](items []T, item T, ref func(T) string) []T {
	if r := ref(item); r != "" {
		if i := slices.IndexFunc(items, func(x T) bool { return ref(x) == r }); i >= 0 {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func newBuffer(a activity.Activity, now time.Time, resumed bool) *Buffer {
	return &Buffer{
		Activity:    a,
		Findings:    []finding.Finding{},
		Evidence:    []activity.Evidence{},
		RoutePoints: []activity.RoutePoint{},
		Resumed:     resumed,
		OpenedAt:    now,
	}
}
