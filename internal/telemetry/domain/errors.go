package telemetry

import "errors"

var (
	// ErrNoReadings indicates an empty reading store for the queried range.
	ErrNoReadings = errors.New("telemetry: no readings")
	// ErrUnknownChannel indicates a channel name outside the monitored set.
	ErrUnknownChannel = errors.New("telemetry: unknown channel")
)
