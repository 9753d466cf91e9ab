package thresholds

import (
	"context"
	"errors"
	"time"

	telemetry "engine-monitor/internal/telemetry/domain"
)

// Threshold holds the configured bounds for one sensor channel. Values
// outside [Lower, Upper] raise alerts.
type Threshold struct {
	Sensor    string    `json:"sensor"`
	Upper     float64   `json:"upperThreshold"`
	Lower     float64   `json:"lowerThreshold"`
	Unit      string    `json:"unit"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks threshold invariants.
func (t Threshold) Validate() error {
	if t.Sensor == "" {
		return errors.New("threshold: empty sensor")
	}
	if !knownChannel(t.Sensor) {
		return errors.New("threshold: unknown sensor")
	}
	if t.Upper < t.Lower {
		return errors.New("threshold: upper below lower")
	}
	return nil
}

// Repository loads and stores per-sensor thresholds.
type Repository interface {
	FindAll(ctx context.Context) (map[string]Threshold, error)
	Upsert(ctx context.Context, threshold Threshold) error
}

func knownChannel(name string) bool {
	for _, channel := range telemetry.Channels {
		if channel == name {
			return true
		}
	}
	return false
}
