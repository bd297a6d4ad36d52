package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/fault"
)

// ActivityRepository persists activities and the items collected while they run.
type ActivityRepository struct {
	db  *DB
	now func() time.Time
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db, now: time.Now}
}

const activityColumns = `
	id, code, kind, description, scheduled_date, ranger_id, state,
	start_time, start_lat, start_lng, end_time, end_lat, end_lng, observations`

func scanActivity(row scanner) (activity.Activity, error) {
	var (
		base               activity.Activity
		state              string
		startTime, endTime sql.NullString
		startLat, startLng sql.NullFloat64
		endLat, endLng     sql.NullFloat64
		observations       string
	)
	if err := row.Scan(
		&base.ID, &base.Code, &base.Kind, &base.Description, &base.ScheduledDate, &base.RangerID, &state,
		&startTime, &startLat, &startLng, &endTime, &endLat, &endLng, &observations,
	); err != nil {
		return activity.Activity{}, err
	}
	return activity.Assemble(base, activity.State(state),
		stampOf(startTime, startLat, startLng), stampOf(endTime, endLat, endLng), observations)
}

func stampOf(t sql.NullString, lat, lng sql.NullFloat64) *activity.Stamp {
	if !t.Valid {
		return nil
	}
	return &activity.Stamp{Time: t.String, Coordinates: field.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}}
}

// Schedule inserts a new activity in the scheduled state.
func (r *ActivityRepository) Schedule(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Code == "" {
		a.Code = strings.ToUpper(string(a.Kind[:min(3, len(a.Kind))])) + "-" + a.ID[:min(8, len(a.ID))]
	}
	a.Phase = activity.Scheduled{}
	if err := a.Validate(); err != nil {
		return activity.Activity{}, err
	}

	now := formatTime(r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (id, code, kind, description, scheduled_date, ranger_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.Kind, a.Description, a.ScheduledDate, a.RangerID, activity.StateScheduled, now, now,
	)
	if err != nil {
		return activity.Activity{}, writeError("schedule activity", err)
	}
	return a, nil
}

// Get loads one activity.
func (r *ActivityRepository) Get(ctx context.Context, id string) (activity.Activity, error) {
	return getActivity(ctx, r.db, id)
}

func getActivity(ctx context.Context, q execer, id string) (activity.Activity, error) {
	a, err := scanActivity(q.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.Activity{}, notFound("activity", id)
		}
		return activity.Activity{}, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// ListByRanger returns the ranger's activities, most recently scheduled first.
func (r *ActivityRepository) ListByRanger(ctx context.Context, rangerID string) ([]activity.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE ranger_id = ?
		ORDER BY scheduled_date DESC, created_at DESC, id`, rangerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	list := []activity.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// InProgress returns the ranger's in-progress activity and its route, or nil.
func (r *ActivityRepository) InProgress(ctx context.Context, rangerID string) (*activity.Resumable, error) {
	a, err := scanActivity(r.db.QueryRowContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE ranger_id = ? AND state = ?
		ORDER BY updated_at DESC
		LIMIT 1`, rangerID, activity.StateInProgress))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find in-progress activity: %w", err)
	}
	points, err := r.RoutePoints(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &activity.Resumable{Activity: a, RoutePoints: points}, nil
}

// Start moves a scheduled activity to in progress.
func (r *ActivityRepository) Start(ctx context.Context, id string, stamp activity.Stamp) (activity.Activity, error) {
	var started activity.Activity
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := activity.ValidateTransition(current.State(), activity.StateInProgress); err != nil {
			return fmt.Errorf("activity %q is %s: %w", id, current.State(), err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE activities
			SET state = ?, start_time = ?, start_lat = ?, start_lng = ?, updated_at = ?
			WHERE id = ? AND state = ?`,
			activity.StateInProgress, stamp.Time, stamp.Latitude, stamp.Longitude, formatTime(r.now()),
			id, activity.StateScheduled,
		); err != nil {
			return fmt.Errorf("failed to start activity: %w", err)
		}
		started, err = getActivity(ctx, tx, id)
		return err
	})
	if err != nil {
		return activity.Activity{}, err
	}
	return started, nil
}

// Finish completes an in-progress activity and stores the bundled items in one transaction.
// Items whose client reference is already stored are skipped. Replaying a finish that already
// completed with the same end stamp stores any new items and returns the completed activity.
func (r *ActivityRepository) Finish(ctx context.Context, req activity.FinishRequest) (activity.Activity, error) {
	var done activity.Activity
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getActivity(ctx, tx, req.ActivityID)
		if err != nil {
			return err
		}
		if end, ok := current.EndStamp(); ok && end == req.End {
			done = current
			return insertBundle(ctx, tx, current.RangerID, req)
		}
		if err := activity.ValidateTransition(current.State(), activity.StateCompleted); err != nil {
			return fmt.Errorf("activity %q is %s: %w", req.ActivityID, current.State(), err)
		}
		if err := insertBundle(ctx, tx, current.RangerID, req); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE activities
			SET state = ?, end_time = ?, end_lat = ?, end_lng = ?, observations = ?, updated_at = ?
			WHERE id = ? AND state = ?`,
			activity.StateCompleted, req.End.Time, req.End.Latitude, req.End.Longitude, req.Observations,
			formatTime(r.now()), req.ActivityID, activity.StateInProgress,
		); err != nil {
			return fmt.Errorf("failed to finish activity: %w", err)
		}
		done, err = getActivity(ctx, tx, req.ActivityID)
		return err
	})
	if err != nil {
		return activity.Activity{}, err
	}
	return done, nil
}

func insertBundle(ctx context.Context, tx *sql.Tx, rangerID string, req activity.FinishRequest) error {
	for _, p := range req.RoutePoints {
		if _, err := insertRoutePoint(ctx, tx, req.ActivityID, p); err != nil {
			return err
		}
	}
	for _, f := range req.Findings {
		f.ActivityID = req.ActivityID
		f.RangerID = rangerID
		if _, err := insertFinding(ctx, tx, f); err != nil {
			return err
		}
	}
	for _, e := range req.Evidence {
		if err := insertEvidence(ctx, tx, req.ActivityID, e); err != nil {
			return err
		}
	}
	return nil
}

// RoutePoints lists an activity's route in capture order.
func (r *ActivityRepository) RoutePoints(ctx context.Context, activityID string) ([]activity.RoutePoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, activity_id, COALESCE(client_ref, ''), lat, lng, recorded_at, note
		FROM route_points
		WHERE activity_id = ?
		ORDER BY recorded_at, rowid`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list route points: %w", err)
	}
	defer rows.Close()

	points := []activity.RoutePoint{}
	for rows.Next() {
		p, err := scanRoutePoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanRoutePoint(row scanner) (activity.RoutePoint, error) {
	var (
		p          activity.RoutePoint
		recordedAt string
	)
	if err := row.Scan(&p.ID, &p.ActivityID, &p.ClientRef, &p.Latitude, &p.Longitude, &recordedAt, &p.Note); err != nil {
		return activity.RoutePoint{}, err
	}
	t, err := parseTime(recordedAt)
	if err != nil {
		return activity.RoutePoint{}, err
	}
	p.RecordedAt = t
	return p, nil
}

// AddRoutePoint stores a GPS fix for an in-progress activity.
// A repeated client reference returns the point stored the first time.
func (r *ActivityRepository) AddRoutePoint(ctx context.Context, activityID string, p activity.RoutePoint) (activity.RoutePoint, error) {
	var saved activity.RoutePoint
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, activityID); err != nil {
			return err
		}
		var err error
		saved, err = insertRoutePoint(ctx, tx, activityID, p)
		return err
	})
	return saved, err
}

func insertRoutePoint(ctx context.Context, q execer, activityID string, p activity.RoutePoint) (activity.RoutePoint, error) {
	p.ID = uuid.NewString()
	p.ActivityID = activityID
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO route_points (id, activity_id, client_ref, lat, lng, recorded_at, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, activityID, nullable(p.ClientRef), p.Latitude, p.Longitude, formatTime(p.RecordedAt), p.Note,
	)
	if err != nil {
		return activity.RoutePoint{}, writeError("add route point", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		p.RecordedAt = p.RecordedAt.UTC()
		return p, nil
	}
	existing, err := scanRoutePoint(q.QueryRowContext(ctx, `
		SELECT id, activity_id, COALESCE(client_ref, ''), lat, lng, recorded_at, note
		FROM route_points
		WHERE activity_id = ? AND client_ref = ?`, activityID, p.ClientRef))
	if err != nil {
		return activity.RoutePoint{}, fmt.Errorf("failed to load existing route point: %w", err)
	}
	return existing, nil
}

// RemoveRoutePoint deletes a point while its activity is in progress.
func (r *ActivityRepository) RemoveRoutePoint(ctx context.Context, activityID, pointID string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, activityID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM route_points WHERE id = ? AND activity_id = ?`, pointID, activityID)
		if err != nil {
			return fmt.Errorf("failed to delete route point: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("route point", pointID)
		}
		return nil
	})
}

// Evidence lists the attachments stored with an activity's finish call.
func (r *ActivityRepository) Evidence(ctx context.Context, activityID string) ([]activity.Evidence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, activity_id, client_ref, url, description, category, captured_at
		FROM evidence
		WHERE activity_id = ?
		ORDER BY captured_at, rowid`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	list := []activity.Evidence{}
	for rows.Next() {
		var (
			e          activity.Evidence
			capturedAt string
		)
		if err := rows.Scan(&e.ID, &e.ActivityID, &e.ClientRef, &e.URL, &e.Description, &e.Category, &capturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		if e.CapturedAt, err = parseTime(capturedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func insertEvidence(ctx context.Context, q execer, activityID string, e activity.Evidence) error {
	if e.ClientRef == "" {
		return fmt.Errorf("evidence without client reference: %w", fault.ErrRejected)
	}
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO evidence (id, activity_id, client_ref, url, description, category, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), activityID, e.ClientRef, e.URL, e.Description, e.Category, formatTime(e.CapturedAt),
	)
	if err != nil {
		return writeError("store evidence", err)
	}
	return nil
}

func requireInProgress(ctx context.Context, q execer, activityID string) error {
	a, err := getActivity(ctx, q, activityID)
	if err != nil {
		return err
	}
	if a.State() != activity.StateInProgress {
		return notInProgress(activityID)
	}
	return nil
}
