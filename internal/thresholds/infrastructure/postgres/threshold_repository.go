package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	thresholds "engine-monitor/internal/thresholds/domain"
)

// ThresholdRepository is a Postgres repository for sensor thresholds.
type ThresholdRepository struct {
	db *sql.DB
}

// NewThresholdRepository constructs a repository.
func NewThresholdRepository(db *sql.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// FindAll returns the full threshold set keyed by sensor name. The alert
// processor calls this on every cycle so edits apply to the next scan
// without restarts.
func (r *ThresholdRepository) FindAll(ctx context.Context) (map[string]thresholds.Threshold, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("threshold repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT sensor, upper_threshold, lower_threshold, unit, updated_at
FROM sensor_thresholds
ORDER BY sensor ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]thresholds.Threshold)
	for rows.Next() {
		var t thresholds.Threshold
		var unit sql.NullString
		if err := rows.Scan(&t.Sensor, &t.Upper, &t.Lower, &unit, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Unit = unit.String
		t.UpdatedAt = t.UpdatedAt.UTC()
		result[t.Sensor] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert writes the bounds for one sensor.
func (r *ThresholdRepository) Upsert(ctx context.Context, threshold thresholds.Threshold) error {
	if r == nil || r.db == nil {
		return errors.New("threshold repo: nil db")
	}
	if err := threshold.Validate(); err != nil {
		return err
	}
	if threshold.UpdatedAt.IsZero() {
		threshold.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sensor_thresholds (sensor, upper_threshold, lower_threshold, unit, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (sensor) DO UPDATE SET
	upper_threshold = EXCLUDED.upper_threshold,
	lower_threshold = EXCLUDED.lower_threshold,
	unit = EXCLUDED.unit,
	updated_at = EXCLUDED.updated_at`,
		threshold.Sensor, threshold.Upper, threshold.Lower, threshold.Unit, threshold.UpdatedAt)
	return err
}
