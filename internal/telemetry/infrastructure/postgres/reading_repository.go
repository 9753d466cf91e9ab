package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	telemetry "engine-monitor/internal/telemetry/domain"
)

const readingColumns = `ts, rpm, iat, clt, afr, map, tps`

// ReadingRepository is a Postgres repository for sensor readings.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert appends sensor readings. Re-delivered timestamps overwrite the
// stored row so late duplicates do not multiply.
func (r *ReadingRepository) Insert(ctx context.Context, readings []telemetry.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO sensor_readings (ts, rpm, iat, clt, afr, map, tps)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (ts) DO UPDATE SET
	rpm = EXCLUDED.rpm,
	iat = EXCLUDED.iat,
	clt = EXCLUDED.clt,
	afr = EXCLUDED.afr,
	map = EXCLUDED.map,
	tps = EXCLUDED.tps`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, reading := range readings {
		if reading.Timestamp.IsZero() {
			_ = tx.Rollback()
			return errors.New("reading repo: zero timestamp")
		}
		if _, err := stmt.ExecContext(
			ctx,
			reading.Timestamp.UTC(),
			reading.RPM,
			reading.IAT,
			reading.CLT,
			reading.AFR,
			reading.MAP,
			reading.TPS,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Latest returns the most recent reading or nil when the store is empty.
func (r *ReadingRepository) Latest(ctx context.Context) (*telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+readingColumns+`
FROM sensor_readings
ORDER BY ts DESC
LIMIT 1`)
	return scanReading(row)
}

// LatestInRange returns the most recent reading within [from, to].
func (r *ReadingRepository) LatestInRange(ctx context.Context, from, to time.Time) (*telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+readingColumns+`
FROM sensor_readings
WHERE ts >= $1 AND ts <= $2
ORDER BY ts DESC
LIMIT 1`, from.UTC(), to.UTC())
	return scanReading(row)
}

// Since returns readings strictly newer than the watermark, ascending.
func (r *ReadingRepository) Since(ctx context.Context, after time.Time) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+readingColumns+`
FROM sensor_readings
WHERE ts > $1
ORDER BY ts ASC`, after.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// Range returns readings within [from, to), ascending.
func (r *ReadingRepository) Range(ctx context.Context, from, to time.Time) ([]telemetry.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+readingColumns+`
FROM sensor_readings
WHERE ts >= $1 AND ts < $2
ORDER BY ts ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// Count returns the total number of stored readings.
func (r *ReadingRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("reading repo: nil db")
	}
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_readings`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*telemetry.Reading, error) {
	var reading telemetry.Reading
	var rpm, iat, clt, afr, mapKPa, tps sql.NullFloat64
	if err := row.Scan(&reading.Timestamp, &rpm, &iat, &clt, &afr, &mapKPa, &tps); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	reading.Timestamp = reading.Timestamp.UTC()
	reading.RPM = rpm.Float64
	reading.IAT = iat.Float64
	reading.CLT = clt.Float64
	reading.AFR = afr.Float64
	reading.MAP = mapKPa.Float64
	reading.TPS = tps.Float64
	return &reading, nil
}

func collectReadings(rows *sql.Rows) ([]telemetry.Reading, error) {
	var result []telemetry.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
