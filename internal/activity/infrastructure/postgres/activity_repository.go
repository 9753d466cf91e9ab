package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	activity "engine-monitor/internal/activity/domain"
)

const recordColumns = `day_start, active_time_minutes, last_processed_ts, is_active, updated_at`

// ActivityRepository is a Postgres repository for daily activity records.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository constructs a repository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByDay loads the record for a WIB day start, or nil.
func (r *ActivityRepository) FindByDay(ctx context.Context, dayStart time.Time) (*activity.DailyRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("activity repo: nil db")
	}
	if dayStart.IsZero() {
		return nil, activity.ErrInvalidDayStart
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM daily_engine_activity
WHERE day_start = $1
LIMIT 1`, dayStart.UTC())
	return scanRecord(row)
}

// ApplyIncrement folds one reading into the day's record in a single
// atomic statement. The WHERE guard is a compare-and-set on the stored
// watermark: a reading that lost the race (or was already processed)
// applies nothing, and the current row is returned instead. A stored
// watermark older than the day start resets the counter to the bare
// increment so no minutes carry across the WIB boundary.
func (r *ActivityRepository) ApplyIncrement(ctx context.Context, dayStart time.Time, increment int, readingTS time.Time) (*activity.DailyRecord, bool, error) {
	if r == nil || r.db == nil {
		return nil, false, errors.New("activity repo: nil db")
	}
	if dayStart.IsZero() {
		return nil, false, activity.ErrInvalidDayStart
	}
	if increment <= 0 {
		return nil, false, activity.ErrInvalidIncrement
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO daily_engine_activity (day_start, active_time_minutes, last_processed_ts, is_active, updated_at)
VALUES ($1, $2, $3, TRUE, NOW())
ON CONFLICT (day_start) DO UPDATE SET
	active_time_minutes = CASE
		WHEN daily_engine_activity.last_processed_ts < $1 THEN $2
		ELSE daily_engine_activity.active_time_minutes + $2
	END,
	last_processed_ts = $3,
	is_active = TRUE,
	updated_at = NOW()
WHERE daily_engine_activity.last_processed_ts < $3
RETURNING `+recordColumns, dayStart.UTC(), increment, readingTS.UTC())

	record, err := scanRecord(row)
	if err != nil {
		return nil, false, err
	}
	if record != nil {
		return record, true, nil
	}

	// Guard rejected the update: the reading is already folded in.
	record, err = r.FindByDay(ctx, dayStart)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, errors.New("activity repo: record missing after rejected update")
	}
	return record, false, nil
}

// History returns daily records with day_start within [from, to].
func (r *ActivityRepository) History(ctx context.Context, from, to time.Time) ([]activity.DailyRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("activity repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recordColumns+`
FROM daily_engine_activity
WHERE day_start >= $1 AND day_start <= $2
ORDER BY day_start ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activity.DailyRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*activity.DailyRecord, error) {
	var record activity.DailyRecord
	if err := row.Scan(
		&record.DayStart,
		&record.ActiveTime,
		&record.LastProcessed,
		&record.IsActive,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	record.DayStart = record.DayStart.UTC()
	record.LastProcessed = record.LastProcessed.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}
