package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/fieldwork/internal/domain/finding"
)

// FindingRepository persists findings and their follow-up history.
type FindingRepository struct {
	db  *DB
	now func() time.Time
}

// NewFindingRepository creates a new FindingRepository
func NewFindingRepository(db *DB) *FindingRepository {
	return &FindingRepository{db: db, now: time.Now}
}

const findingColumns = `
	id, COALESCE(activity_id, ''), COALESCE(client_ref, ''), ranger_id, title, description,
	severity, status, lat, lng, reported_at, resolved_at`

func scanFinding(row scanner) (finding.Finding, error) {
	var (
		f          finding.Finding
		reportedAt string
		resolvedAt sql.NullString
	)
	if err := row.Scan(
		&f.ID, &f.ActivityID, &f.ClientRef, &f.RangerID, &f.Title, &f.Description,
		&f.Severity, &f.Status, &f.Coordinates.Latitude, &f.Coordinates.Longitude, &reportedAt, &resolvedAt,
	); err != nil {
		return finding.Finding{}, err
	}
	t, err := parseTime(reportedAt)
	if err != nil {
		return finding.Finding{}, err
	}
	f.ReportedAt = t
	if resolvedAt.Valid {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return finding.Finding{}, err
		}
		f.ResolvedAt = &t
	}
	return f, nil
}

// Report stores a finding that is not tied to an activity.
func (r *FindingRepository) Report(ctx context.Context, f finding.Finding) (finding.Finding, error) {
	f.ActivityID = ""
	return insertFinding(ctx, r.db, f)
}

// Get loads a finding with its follow-ups.
func (r *FindingRepository) Get(ctx context.Context, id string) (finding.Finding, error) {
	return getFinding(ctx, r.db, id)
}

func getFinding(ctx context.Context, q execer, id string) (finding.Finding, error) {
	f, err := scanFinding(q.QueryRowContext(ctx, `SELECT `+findingColumns+` FROM findings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return finding.Finding{}, notFound("finding", id)
		}
		return finding.Finding{}, fmt.Errorf("failed to get finding: %w", err)
	}
	if f.FollowUps, err = followUps(ctx, q, id); err != nil {
		return finding.Finding{}, err
	}
	return f, nil
}

func followUps(ctx context.Context, q execer, findingID string) ([]finding.FollowUp, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT at, action, actor, notes
		FROM finding_follow_ups
		WHERE finding_id = ?
		ORDER BY seq`, findingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	var list []finding.FollowUp
	for rows.Next() {
		var (
			entry finding.FollowUp
			at    string
		)
		if err := rows.Scan(&at, &entry.Action, &entry.Actor, &entry.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		if entry.At, err = parseTime(at); err != nil {
			return nil, err
		}
		list = append(list, entry)
	}
	return list, rows.Err()
}

// Independent lists the ranger's findings without an activity reported on the given UTC date.
func (r *FindingRepository) Independent(ctx context.Context, rangerID string, day time.Time) ([]finding.Finding, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return r.list(ctx, `
		SELECT `+findingColumns+`
		FROM findings
		WHERE ranger_id = ? AND activity_id IS NULL AND reported_at >= ? AND reported_at < ?
		ORDER BY reported_at, rowid`,
		rangerID, formatTime(from), formatTime(from.AddDate(0, 0, 1)))
}

// ByActivity lists the findings recorded during an activity.
func (r *FindingRepository) ByActivity(ctx context.Context, activityID string) ([]finding.Finding, error) {
	return r.list(ctx, `
		SELECT `+findingColumns+`
		FROM findings
		WHERE activity_id = ?
		ORDER BY reported_at, rowid`, activityID)
}

func (r *FindingRepository) list(ctx context.Context, query string, args ...any) ([]finding.Finding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	list := []finding.Finding{}
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		list = append(list, f)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// The single connection is busy until rows are closed.
	for i := range list {
		if list[i].FollowUps, err = followUps(ctx, r.db, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Attach stores a finding recorded during an in-progress activity.
// A repeated client reference returns the finding stored the first time.
func (r *FindingRepository) Attach(ctx context.Context, activityID, rangerID string, f finding.Finding) (finding.Finding, error) {
	var saved finding.Finding
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, activityID); err != nil {
			return err
		}
		f.ActivityID = activityID
		f.RangerID = rangerID
		var err error
		saved, err = insertFinding(ctx, tx, f)
		return err
	})
	return saved, err
}

// Detach deletes a finding from an in-progress activity.
func (r *FindingRepository) Detach(ctx context.Context, activityID, findingID string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, activityID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE id = ? AND activity_id = ?`, findingID, activityID)
		if err != nil {
			return fmt.Errorf("failed to delete finding: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("finding", findingID)
		}
		return nil
	})
}

func insertFinding(ctx context.Context, q execer, f finding.Finding) (finding.Finding, error) {
	if err := f.Validate(); err != nil {
		return finding.Finding{}, err
	}
	f.ID = uuid.NewString()
	f.ReportedAt = f.ReportedAt.UTC()
	var resolvedAt any
	if f.ResolvedAt != nil {
		resolvedAt = formatTime(*f.ResolvedAt)
	}

	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO findings
			(id, activity_id, client_ref, ranger_id, title, description, severity, status, lat, lng, reported_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullable(f.ActivityID), nullable(f.ClientRef), f.RangerID, f.Title, f.Description,
		f.Severity, f.Status, f.Coordinates.Latitude, f.Coordinates.Longitude, formatTime(f.ReportedAt), resolvedAt,
	)
	if err != nil {
		return finding.Finding{}, writeError("store finding", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		if err := insertFollowUps(ctx, q, f.ID, 0, f.FollowUps); err != nil {
			return finding.Finding{}, err
		}
		return f, nil
	}

	var existing string
	err = q.QueryRowContext(ctx, `SELECT id FROM findings WHERE ranger_id = ? AND client_ref = ?`,
		f.RangerID, f.ClientRef).Scan(&existing)
	if err != nil {
		return finding.Finding{}, fmt.Errorf("failed to load existing finding: %w", err)
	}
	return getFinding(ctx, q, existing)
}

func insertFollowUps(ctx context.Context, q execer, findingID string, seq int, entries []finding.FollowUp) error {
	for i, entry := range entries {
		_, err := q.ExecContext(ctx, `
			INSERT INTO finding_follow_ups (finding_id, seq, at, action, actor, notes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			findingID, seq+i, formatTime(entry.At), entry.Action, entry.Actor, entry.Notes,
		)
		if err != nil {
			return writeError("store follow-up", err)
		}
	}
	return nil
}

// Transition moves a finding to a new status, stamping the resolution time when resolved.
func (r *FindingRepository) Transition(ctx context.Context, id string, to finding.Status) (finding.Finding, error) {
	var updated finding.Finding
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFinding(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := f.Transition(to, r.now()); err != nil {
			return err
		}
		var resolvedAt any
		if f.ResolvedAt != nil {
			resolvedAt = formatTime(*f.ResolvedAt)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE findings SET status = ?, resolved_at = ? WHERE id = ?`,
			f.Status, resolvedAt, id); err != nil {
			return fmt.Errorf("failed to update finding: %w", err)
		}
		updated, err = getFinding(ctx, tx, id)
		return err
	})
	return updated, err
}

// AddFollowUp appends an entry to a finding's history.
func (r *FindingRepository) AddFollowUp(ctx context.Context, id string, entry finding.FollowUp) (finding.Finding, error) {
	if err := entry.Validate(); err != nil {
		return finding.Finding{}, err
	}
	if entry.At.IsZero() {
		entry.At = r.now()
	}
	var updated finding.Finding
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFinding(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := insertFollowUps(ctx, tx, id, len(f.FollowUps), []finding.FollowUp{entry}); err != nil {
			return err
		}
		updated, err = getFinding(ctx, tx, id)
		return err
	})
	return updated, err
}
