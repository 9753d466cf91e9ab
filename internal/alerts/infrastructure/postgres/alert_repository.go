package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	alerts "engine-monitor/internal/alerts/domain"
)

const alertColumns = `id, sensor, value, upper_threshold, lower_threshold, unit, description, ts, created_at`

// AlertRepository is a Postgres repository for threshold alerts.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// InsertBatch appends generated alerts in one transaction.
func (r *AlertRepository) InsertBatch(ctx context.Context, batch []alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO alerts (id, sensor, value, upper_threshold, lower_threshold, unit, description, ts, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, alert := range batch {
		if alert.ID == "" || alert.Sensor == "" || alert.Timestamp.IsZero() {
			_ = tx.Rollback()
			return errors.New("alert repo: invalid alert")
		}
		if _, err := stmt.ExecContext(
			ctx,
			alert.ID,
			alert.Sensor,
			alert.Value,
			alert.Upper,
			alert.Lower,
			alert.Unit,
			alert.Description,
			alert.Timestamp.UTC(),
			alert.CreatedAt.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListByDay returns alerts within a WIB day window, oldest first, with
// the total count for pagination.
func (r *AlertRepository) ListByDay(ctx context.Context, dayStart, dayEnd time.Time, page, limit int) ([]alerts.Alert, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("alert repo: nil db")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM alerts WHERE ts >= $1 AND ts <= $2`, dayStart.UTC(), dayEnd.UTC()).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+alertColumns+`
FROM alerts
WHERE ts >= $1 AND ts <= $2
ORDER BY ts ASC
LIMIT $3 OFFSET $4`, dayStart.UTC(), dayEnd.UTC(), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result, err := collectAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// ListRecent returns the newest alerts, newest first.
func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if limit < 1 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+alertColumns+`
FROM alerts
ORDER BY ts DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// CountBySensor returns alert counts per sensor within [from, to].
func (r *AlertRepository) CountBySensor(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT sensor, COUNT(*)
FROM alerts
WHERE ts >= $1 AND ts <= $2
GROUP BY sensor`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var sensor string
		var count int64
		if err := rows.Scan(&sensor, &count); err != nil {
			return nil, err
		}
		result[sensor] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectAlerts(rows *sql.Rows) ([]alerts.Alert, error) {
	var result []alerts.Alert
	for rows.Next() {
		var alert alerts.Alert
		var unit sql.NullString
		if err := rows.Scan(
			&alert.ID,
			&alert.Sensor,
			&alert.Value,
			&alert.Upper,
			&alert.Lower,
			&unit,
			&alert.Description,
			&alert.Timestamp,
			&alert.CreatedAt,
		); err != nil {
			return nil, err
		}
		alert.Unit = unit.String
		alert.Timestamp = alert.Timestamp.UTC()
		alert.CreatedAt = alert.CreatedAt.UTC()
		result = append(result, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
