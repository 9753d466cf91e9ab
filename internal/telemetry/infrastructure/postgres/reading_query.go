package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "engine-monitor/internal/telemetry/domain"
	"engine-monitor/internal/wib"

	"time"
)

var channelColumns = map[string]string{
	telemetry.ChannelRPM: "rpm",
	telemetry.ChannelIAT: "iat",
	telemetry.ChannelCLT: "clt",
	telemetry.ChannelAFR: "afr",
	telemetry.ChannelMAP: "map",
	telemetry.ChannelTPS: "tps",
}

// ReadingQuery serves aggregate views the dashboard charts consume.
type ReadingQuery struct {
	db *sql.DB
}

// NewReadingQuery constructs a query service.
func NewReadingQuery(db *sql.DB) *ReadingQuery {
	return &ReadingQuery{db: db}
}

// Stats returns min/avg/max per channel over [from, to].
func (q *ReadingQuery) Stats(ctx context.Context, from, to time.Time) ([]telemetry.ChannelStats, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	row := q.db.QueryRowContext(ctx, `
SELECT
	MIN(rpm), AVG(rpm), MAX(rpm),
	MIN(iat), AVG(iat), MAX(iat),
	MIN(clt), AVG(clt), MAX(clt),
	MIN(afr), AVG(afr), MAX(afr),
	MIN(map), AVG(map), MAX(map),
	MIN(tps), AVG(tps), MAX(tps)
FROM sensor_readings
WHERE ts >= $1 AND ts <= $2`, from.UTC(), to.UTC())

	values := make([]sql.NullFloat64, len(telemetry.Channels)*3)
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	stats := make([]telemetry.ChannelStats, 0, len(telemetry.Channels))
	for i, channel := range telemetry.Channels {
		stats = append(stats, telemetry.ChannelStats{
			Channel: channel,
			Min:     values[i*3].Float64,
			Avg:     values[i*3+1].Float64,
			Max:     values[i*3+2].Float64,
		})
	}
	return stats, nil
}

// Insight returns per-bucket averages for one channel. Buckets are
// labelled in WIB so the chart axis matches the operator's clock.
func (q *ReadingQuery) Insight(ctx context.Context, channel string, from, to time.Time, bucket telemetry.BucketGranularity) ([]telemetry.InsightPoint, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	column, ok := channelColumns[channel]
	if !ok {
		return nil, telemetry.ErrUnknownChannel
	}
	trunc, layout, err := bucketSpec(bucket)
	if err != nil {
		return nil, err
	}

	offsetHours := int(wib.Offset.Hours())
	query := fmt.Sprintf(`
SELECT date_trunc('%s', ts + INTERVAL '%d hours') AS bucket, AVG(%s)
FROM sensor_readings
WHERE ts >= $1 AND ts <= $2
GROUP BY bucket
ORDER BY bucket ASC`, trunc, offsetHours, column)

	rows, err := q.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []telemetry.InsightPoint
	for rows.Next() {
		var at time.Time
		var avg sql.NullFloat64
		if err := rows.Scan(&at, &avg); err != nil {
			return nil, err
		}
		points = append(points, telemetry.InsightPoint{
			Bucket: at.Format(layout),
			Value:  avg.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

func bucketSpec(bucket telemetry.BucketGranularity) (trunc, layout string, err error) {
	switch bucket {
	case telemetry.BucketHour:
		return "hour", "2006-01-02 15:00:00", nil
	case telemetry.BucketDay:
		return "day", "2006-01-02", nil
	case telemetry.BucketMonth:
		return "month", "2006-01", nil
	default:
		return "", "", errors.New("reading query: invalid bucket granularity")
	}
}
