package application

import (
	"context"
	"errors"
	"time"

	activity "engine-monitor/internal/activity/domain"
	alerts "engine-monitor/internal/alerts/domain"
	telemetry "engine-monitor/internal/telemetry/domain"
	"engine-monitor/internal/wib"
)

// ErrInvalidPeriod reports an unsupported summary period.
var ErrInvalidPeriod = errors.New("stats: period must be week or month")

// Period selects the summary window.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Summary aggregates engine activity, channel ranges and alert counts
// over a period of WIB days ending today.
type Summary struct {
	Period          Period                   `json:"period"`
	From            string                   `json:"from"`
	To              string                   `json:"to"`
	DaysActive      int                      `json:"daysActive"`
	TotalActiveMin  int                      `json:"totalActiveMinutes"`
	AvgDailyActive  float64                  `json:"avgDailyActiveMinutes"`
	BusiestDay      string                   `json:"busiestDay,omitempty"`
	BusiestDayMin   int                      `json:"busiestDayMinutes,omitempty"`
	Channels        []telemetry.ChannelStats `json:"channels"`
	AlertsBySensor  map[string]int64         `json:"alertsBySensor"`
	AlertsGenerated int64                    `json:"alertsGenerated"`
}

// Clock provides time for window calculation.
type Clock interface {
	Now() time.Time
}

// Service computes period summaries.
type Service struct {
	records activity.Repository
	query   telemetry.ReadingQuery
	alerts  alerts.Repository
	clock   Clock
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithClock overrides the default clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a stats service.
func NewService(records activity.Repository, query telemetry.ReadingQuery, alertRepo alerts.Repository, opts ...ServiceOption) (*Service, error) {
	if records == nil {
		return nil, errors.New("stats: nil activity repository")
	}
	if query == nil {
		return nil, errors.New("stats: nil reading query")
	}
	if alertRepo == nil {
		return nil, errors.New("stats: nil alert repository")
	}
	s := &Service{records: records, query: query, alerts: alertRepo, clock: systemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Summarize builds the summary for the period ending on the current WIB
// day.
func (s *Service) Summarize(ctx context.Context, period Period) (*Summary, error) {
	days, err := periodDays(period)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	to := wib.DayStart(now)
	from := to.Add(-time.Duration(days-1) * 24 * time.Hour)
	_, windowEnd := wib.DayBounds(now)

	records, err := s.records.History(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Period:         period,
		From:           wib.ToWIB(from).Format("2006-01-02"),
		To:             wib.ToWIB(to).Format("2006-01-02"),
		AlertsBySensor: map[string]int64{},
	}
	for _, record := range records {
		if record.ActiveTime <= 0 {
			continue
		}
		summary.DaysActive++
		summary.TotalActiveMin += record.ActiveTime
		if record.ActiveTime > summary.BusiestDayMin {
			summary.BusiestDayMin = record.ActiveTime
			summary.BusiestDay = wib.ToWIB(record.DayStart).Format("2006-01-02")
		}
	}
	if days > 0 {
		summary.AvgDailyActive = float64(summary.TotalActiveMin) / float64(days)
	}

	channels, err := s.query.Stats(ctx, from, windowEnd)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []telemetry.ChannelStats{}
	}
	summary.Channels = channels

	counts, err := s.alerts.CountBySensor(ctx, from, windowEnd)
	if err != nil {
		return nil, err
	}
	for sensor, count := range counts {
		summary.AlertsBySensor[sensor] = count
		summary.AlertsGenerated += count
	}
	return summary, nil
}

func periodDays(period Period) (int, error) {
	switch period {
	case PeriodWeek:
		return 7, nil
	case PeriodMonth:
		return 30, nil
	default:
		return 0, ErrInvalidPeriod
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
