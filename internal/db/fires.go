package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordFire inserts a fire row. A second fire for the same schedule and
// instant yields ErrDuplicate.
func (db *DB) RecordFire(ctx context.Context, f *Fire) error {
	return recordFire(ctx, db.DB, f)
}

// RecordFire inserts a fire row within a transaction
func (tx *Tx) RecordFire(ctx context.Context, f *Fire) error {
	return recordFire(ctx, tx.Tx, f)
}

func recordFire(ctx context.Context, q queryer, f *Fire) error {
	if f.StartedAt.IsZero() {
		f.StartedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO fires (schedule_id, fire_at, started_at, completed_at, success, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.ScheduleID, f.FireAt, f.StartedAt, f.CompletedAt, f.Success, f.Error)
	if IsDuplicate(err) {
		return fmt.Errorf("%w: fire %s@%d", ErrDuplicate, f.ScheduleID, f.FireAt)
	}
	return err
}

// ClaimFire records the fire and advances its schedule to next in one
// transaction, so a fire is never recorded without the schedule moving on.
// ErrDuplicate means the instant was already claimed and nothing changed.
func (db *DB) ClaimFire(ctx context.Context, f *Fire, next *int64) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		if err := tx.RecordFire(ctx, f); err != nil {
			return err
		}
		return tx.AdvanceSchedule(ctx, f.ScheduleID, f.FireAt, next)
	})
}

// CompleteFire stores the outcome of a fire. A nil fireErr marks it
// successful.
func (db *DB) CompleteFire(ctx context.Context, scheduleID string, fireAt int64, completedAt time.Time, fireErr error) error {
	success := fireErr == nil
	var errMsg *string
	if fireErr != nil {
		msg := fireErr.Error()
		errMsg = &msg
	}

	result, err := db.ExecContext(ctx, `
		UPDATE fires
		SET completed_at = ?, success = ?, error = ?
		WHERE schedule_id = ? AND fire_at = ?
	`, completedAt, success, errMsg, scheduleID, fireAt)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListFires returns the fires of a schedule, most recent first
func (db *DB) ListFires(ctx context.Context, scheduleID string) ([]Fire, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schedule_id, fire_at, started_at, completed_at, success, error
		FROM fires
		WHERE schedule_id = ?
		ORDER BY fire_at DESC
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fires := []Fire{}
	for rows.Next() {
		var (
			f           Fire
			completedAt sql.NullTime
			success     sql.NullBool
			errMsg      sql.NullString
		)
		if err := rows.Scan(&f.ScheduleID, &f.FireAt, &f.StartedAt, &completedAt, &success, &errMsg); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			f.CompletedAt = &completedAt.Time
		}
		if success.Valid {
			f.Success = &success.Bool
		}
		if errMsg.Valid {
			f.Error = &errMsg.String
		}
		fires = append(fires, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fires, nil
}
