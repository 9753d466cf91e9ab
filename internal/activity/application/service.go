package application

import (
	"context"
	"errors"
	"log"
	"time"

	activity "engine-monitor/internal/activity/domain"
	"engine-monitor/internal/observability/metrics"
	telemetry "engine-monitor/internal/telemetry/domain"
	"engine-monitor/internal/wib"
)

// ReadingSource provides the latest sensor reading for a window.
type ReadingSource interface {
	LatestInRange(ctx context.Context, from, to time.Time) (*telemetry.Reading, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Status is the accumulator output consumed by the dashboard.
type Status struct {
	IsActive            bool       `json:"isActive"`
	TodayActiveTime     int        `json:"todayActiveTime"`
	LatestDataTimestamp *time.Time `json:"latestDataTimestamp"`
	WIBDayStart         time.Time  `json:"wibDayStart"`
	WIBDayEnd           time.Time  `json:"wibDayEnd"`
}

// Service is the active-time accumulator. Each status request reads the
// latest sensor document for the current WIB day and folds it into the
// day's record exactly once; the repository's conditional update keeps
// concurrent requests from double-counting a reading.
type Service struct {
	readings      ReadingSource
	records       activity.Repository
	increment     int
	idleThreshold time.Duration
	clock         Clock
	logger        *log.Logger
}

// ServiceOption customizes the accumulator.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the accumulator.
//
// increment is the fixed number of minutes credited per distinct
// reading. It is a deployment constant, never derived from timestamp
// deltas, so delivery jitter cannot distort accumulated time.
func NewService(readings ReadingSource, records activity.Repository, increment int, idleThreshold time.Duration, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	if readings == nil {
		return nil, errors.New("activity: nil reading source")
	}
	if records == nil {
		return nil, errors.New("activity: nil record repository")
	}
	if increment <= 0 {
		return nil, activity.ErrInvalidIncrement
	}
	if idleThreshold <= 0 {
		return nil, errors.New("activity: idle threshold must be positive")
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &Service{
		readings:      readings,
		records:       records,
		increment:     increment,
		idleThreshold: idleThreshold,
		clock:         systemClock{},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// EngineStatus computes the current activity status, updating the day's
// record when the latest reading has not been folded in yet. Store
// failures propagate to the caller; there is no fallback to stale data.
func (s *Service) EngineStatus(ctx context.Context) (Status, error) {
	if s == nil {
		return Status{}, errors.New("activity: nil service")
	}
	now := s.clock.Now().UTC()
	dayStart, dayEnd := wib.DayBounds(now)
	status := Status{WIBDayStart: dayStart, WIBDayEnd: dayEnd}

	latest, err := s.readings.LatestInRange(ctx, dayStart, dayEnd)
	if err != nil {
		return Status{}, err
	}
	if latest == nil {
		record, err := s.records.FindByDay(ctx, dayStart)
		if err != nil {
			return Status{}, err
		}
		status.TodayActiveTime = storedActiveTime(record)
		metrics.SetEngineActive(false)
		return status, nil
	}

	ts := latest.Timestamp
	status.LatestDataTimestamp = &ts

	if now.Sub(latest.Timestamp) > s.idleThreshold {
		// Stale feed: report inactive without touching the record so
		// an engine can flip inactive between ticks.
		record, err := s.records.FindByDay(ctx, dayStart)
		if err != nil {
			return Status{}, err
		}
		status.TodayActiveTime = storedActiveTime(record)
		metrics.SetEngineActive(false)
		return status, nil
	}

	record, err := s.records.FindByDay(ctx, dayStart)
	if err != nil {
		return Status{}, err
	}

	if record != nil && !latest.Timestamp.After(record.LastProcessed) {
		// Reading already folded in; nothing to apply.
		status.IsActive = true
		status.TodayActiveTime = record.ActiveTime
		metrics.SetEngineActive(true)
		return status, nil
	}

	switch activity.Classify(record, dayStart, latest.Timestamp, s.idleThreshold) {
	case activity.SessionFresh:
		s.logger.Printf("activity: fresh session day=%s reading=%s", wib.NewDayKey(now), latest.Timestamp.Format(time.RFC3339))
		metrics.IncActivityUpdate("fresh")
	case activity.SessionResumed:
		// The gap marks a session boundary only. Accumulation still
		// adds the same fixed increment.
		s.logger.Printf("activity: session resumed after idle gap day=%s reading=%s", wib.NewDayKey(now), latest.Timestamp.Format(time.RFC3339))
		metrics.IncActivityUpdate("resumed")
	default:
		metrics.IncActivityUpdate("continuous")
	}

	updated, applied, err := s.records.ApplyIncrement(ctx, dayStart, s.increment, latest.Timestamp)
	if err != nil {
		return Status{}, err
	}
	if !applied {
		s.logger.Printf("activity: increment lost race day=%s reading=%s", wib.NewDayKey(now), latest.Timestamp.Format(time.RFC3339))
	}

	status.IsActive = true
	status.TodayActiveTime = updated.ActiveTime
	metrics.SetEngineActive(true)
	return status, nil
}

func storedActiveTime(record *activity.DailyRecord) int {
	if record == nil {
		return 0
	}
	return record.ActiveTime
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
