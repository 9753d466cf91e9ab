package postgres

import (
	"context"
	"database/sql"
	"errors"

	alerts "engine-monitor/internal/alerts/domain"
)

// RunRepository persists alert processing run records, including the
// watermark the processor resumes from.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository constructs a repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Latest returns the most recent run record, or nil when no cycle has
// ever completed.
func (r *RunRepository) Latest(ctx context.Context) (*alerts.ProcessingRun, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("run repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT processed_ts, last_reading_time, readings_processed, alerts_generated, success, error, created_at
FROM alert_processing_runs
ORDER BY created_at DESC
LIMIT 1`)

	var run alerts.ProcessingRun
	var lastReading sql.NullTime
	var errMsg sql.NullString
	err := row.Scan(
		&run.ProcessedTS,
		&lastReading,
		&run.ReadingsProcessed,
		&run.AlertsGenerated,
		&run.Success,
		&errMsg,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.ProcessedTS = run.ProcessedTS.UTC()
	run.CreatedAt = run.CreatedAt.UTC()
	if lastReading.Valid {
		t := lastReading.Time.UTC()
		run.LastReadingTime = &t
	}
	run.Error = errMsg.String
	return &run, nil
}

// Insert appends a run record.
func (r *RunRepository) Insert(ctx context.Context, run alerts.ProcessingRun) error {
	if r == nil || r.db == nil {
		return errors.New("run repo: nil db")
	}
	if run.ProcessedTS.IsZero() || run.CreatedAt.IsZero() {
		return errors.New("run repo: invalid run")
	}

	var lastReading sql.NullTime
	if run.LastReadingTime != nil {
		lastReading = sql.NullTime{Time: run.LastReadingTime.UTC(), Valid: true}
	}
	var errMsg sql.NullString
	if run.Error != "" {
		errMsg = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO alert_processing_runs (processed_ts, last_reading_time, readings_processed, alerts_generated, success, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ProcessedTS.UTC(),
		lastReading,
		run.ReadingsProcessed,
		run.AlertsGenerated,
		run.Success,
		errMsg,
		run.CreatedAt.UTC(),
	)
	return err
}
