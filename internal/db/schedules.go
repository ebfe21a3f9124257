package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const scheduleColumns = `id, name, expression, handler,
	minute_mask, hour_mask, dom_mask, month_mask, dow_mask,
	dom_wildcard, dow_wildcard, status, next_fire_at, last_fired_at,
	created_at, updated_at`

// =============================================================================
// Schedule Operations
// =============================================================================

// CreateSchedule inserts a new schedule, assigning a fresh ID when r.ID is
// empty. A name already in use yields ErrDuplicate.
func (db *DB) CreateSchedule(ctx context.Context, r *Record) error {
	return createSchedule(ctx, db.DB, r)
}

// CreateSchedule inserts a new schedule within a transaction
func (tx *Tx) CreateSchedule(ctx context.Context, r *Record) error {
	return createSchedule(ctx, tx.Tx, r)
}

func createSchedule(ctx context.Context, q queryer, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		r.ID, r.Name, r.Expression, r.Handler,
		int64(r.MinuteMask), int64(r.HourMask), int64(r.DomMask), int64(r.MonthMask), int64(r.DowMask),
		r.DomWildcard, r.DowWildcard, r.Status, r.NextFireAt, r.LastFiredAt,
		r.CreatedAt, r.UpdatedAt,
	)
	if IsDuplicate(err) {
		return fmt.Errorf("%w: schedule %q", ErrDuplicate, r.Name)
	}
	return err
}

// GetSchedule retrieves a schedule by ID
func (db *DB) GetSchedule(ctx context.Context, id string) (*Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

// GetScheduleByName retrieves a schedule by its unique name
func (db *DB) GetScheduleByName(ctx context.Context, name string) (*Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE name = ?`, name)
	return scanSchedule(row)
}

// ListSchedules returns every schedule ordered by name
func (db *DB) ListSchedules(ctx context.Context) ([]Record, error) {
	return querySchedules(ctx, db.DB, `SELECT `+scheduleColumns+` FROM schedules ORDER BY name`)
}

// ListActiveSchedules returns the schedules that can still fire
func (db *DB) ListActiveSchedules(ctx context.Context) ([]Record, error) {
	return querySchedules(ctx, db.DB,
		`SELECT `+scheduleColumns+` FROM schedules WHERE status = ? ORDER BY name`, StatusActive)
}

// SetNextFire stores the next fire instant of an active schedule. A nil next
// retires the schedule as exhausted.
func (db *DB) SetNextFire(ctx context.Context, id string, next *int64) error {
	result, err := db.ExecContext(ctx, `
		UPDATE schedules
		SET next_fire_at = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, next, statusFor(next), time.Now().UTC(), id, StatusActive)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// AdvanceSchedule records that the schedule fired at firedAt and stores the
// following instant. A nil next retires the schedule as exhausted.
func (db *DB) AdvanceSchedule(ctx context.Context, id string, firedAt int64, next *int64) error {
	return advanceSchedule(ctx, db.DB, id, firedAt, next)
}

// AdvanceSchedule advances a schedule within a transaction
func (tx *Tx) AdvanceSchedule(ctx context.Context, id string, firedAt int64, next *int64) error {
	return advanceSchedule(ctx, tx.Tx, id, firedAt, next)
}

func advanceSchedule(ctx context.Context, q queryer, id string, firedAt int64, next *int64) error {
	result, err := q.ExecContext(ctx, `
		UPDATE schedules
		SET last_fired_at = ?, next_fire_at = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, firedAt, next, statusFor(next), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// DeleteSchedule deletes a schedule and its fire history
func (db *DB) DeleteSchedule(ctx context.Context, id string) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fires WHERE schedule_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

func statusFor(next *int64) string {
	if next == nil {
		return StatusExhausted
	}
	return StatusActive
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Record, error) {
	var (
		r                             Record
		minute, hour, dom, month, dow int64
		nextFireAt, lastFiredAt       sql.NullInt64
	)

	err := row.Scan(
		&r.ID, &r.Name, &r.Expression, &r.Handler,
		&minute, &hour, &dom, &month, &dow,
		&r.DomWildcard, &r.DowWildcard, &r.Status, &nextFireAt, &lastFiredAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.MinuteMask, r.HourMask, r.DomMask = uint64(minute), uint64(hour), uint64(dom)
	r.MonthMask, r.DowMask = uint64(month), uint64(dow)
	if nextFireAt.Valid {
		r.NextFireAt = &nextFireAt.Int64
	}
	if lastFiredAt.Valid {
		r.LastFiredAt = &lastFiredAt.Int64
	}
	return &r, nil
}

func querySchedules(ctx context.Context, q queryer, query string, args ...any) ([]Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Empty slice rather than nil for callers that encode the result
	records := []Record{}
	for rows.Next() {
		r, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
