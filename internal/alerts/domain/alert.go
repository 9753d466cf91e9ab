package alerts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	telemetry "engine-monitor/internal/telemetry/domain"
	thresholds "engine-monitor/internal/thresholds/domain"
)

// Breach descriptions are part of the stored record and the UI contract.
const (
	DescriptionAboveUpper = "Above Upper Threshold"
	DescriptionBelowLower = "Below Lower Threshold"
)

// Alert is one immutable threshold breach: one record per
// (reading, breached sensor) pair. Sustained breaches across N readings
// produce N alerts; there is no dedup or cool-down.
type Alert struct {
	ID          string    `json:"id"`
	Sensor      string    `json:"sensor"`
	Value       float64   `json:"value"`
	Upper       float64   `json:"upperThreshold"`
	Lower       float64   `json:"lowerThreshold"`
	Unit        string    `json:"unit"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Evaluate checks one reading against the threshold set and returns the
// resulting alerts. Sensors without a configured threshold are skipped,
// as are channels carrying unusable values.
func Evaluate(reading telemetry.Reading, set map[string]thresholds.Threshold, now time.Time) []Alert {
	var result []Alert
	for _, channel := range telemetry.Channels {
		threshold, ok := set[channel]
		if !ok {
			continue
		}
		value, usable := reading.Value(channel)
		if !usable {
			continue
		}

		var description string
		switch {
		case value > threshold.Upper:
			description = DescriptionAboveUpper
		case value < threshold.Lower:
			description = DescriptionBelowLower
		default:
			continue
		}
		result = append(result, Alert{
			ID:          buildAlertID(channel, reading.Timestamp),
			Sensor:      channel,
			Value:       value,
			Upper:       threshold.Upper,
			Lower:       threshold.Lower,
			Unit:        threshold.Unit,
			Description: description,
			Timestamp:   reading.Timestamp.UTC(),
			CreatedAt:   now.UTC(),
		})
	}
	return result
}

// Repository persists alerts. Append-only.
type Repository interface {
	InsertBatch(ctx context.Context, alerts []Alert) error
	ListByDay(ctx context.Context, dayStart, dayEnd time.Time, page, limit int) ([]Alert, int64, error)
	ListRecent(ctx context.Context, limit int) ([]Alert, error)
	CountBySensor(ctx context.Context, from, to time.Time) (map[string]int64, error)
}

func buildAlertID(sensor string, at time.Time) string {
	sum := sha1.Sum([]byte(sensor + "|" + at.UTC().Format(time.RFC3339Nano)))
	return "alert-" + hex.EncodeToString(sum[:8])
}
