package application

import (
	"context"
	"errors"
	"log"
	"time"

	alerts "engine-monitor/internal/alerts/domain"
	"engine-monitor/internal/observability/metrics"
	telemetry "engine-monitor/internal/telemetry/domain"
	thresholds "engine-monitor/internal/thresholds/domain"
)

// ReadingSource provides readings newer than a watermark, ascending.
type ReadingSource interface {
	Since(ctx context.Context, after time.Time) ([]telemetry.Reading, error)
}

// Notifier receives the alerts generated by a cycle.
type Notifier interface {
	Notify(ctx context.Context, batch []alerts.Alert)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// CycleResult summarizes one processing cycle.
type CycleResult struct {
	ReadingsProcessed int  `json:"readingsProcessed"`
	AlertsGenerated   int  `json:"alertsGenerated"`
	Success           bool `json:"success"`
	Skipped           bool `json:"skipped,omitempty"`
}

// Processor scans readings past the stored watermark, evaluates each
// against the current threshold set and appends the resulting alerts.
// Cycles are serialized through an advisory lock; two schedulers racing
// on the same watermark would otherwise double-alert the same range.
type Processor struct {
	readings   ReadingSource
	thresholds thresholds.Repository
	alerts     alerts.Repository
	runs       alerts.RunRepository
	lock       alerts.CycleLock
	notifier   Notifier
	clock      Clock
	logger     *log.Logger
}

// ProcessorOption customizes the processor.
type ProcessorOption func(*Processor)

// WithLock assigns a cycle lock.
func WithLock(lock alerts.CycleLock) ProcessorOption {
	return func(p *Processor) { p.lock = lock }
}

// WithNotifier assigns a notifier.
func WithNotifier(notifier Notifier) ProcessorOption {
	return func(p *Processor) { p.notifier = notifier }
}

// WithClock assigns a clock.
func WithClock(clock Clock) ProcessorOption {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewProcessor constructs the alert processor.
func NewProcessor(readings ReadingSource, thresholdRepo thresholds.Repository, alertRepo alerts.Repository, runs alerts.RunRepository, logger *log.Logger, opts ...ProcessorOption) (*Processor, error) {
	if readings == nil {
		return nil, errors.New("alerts: nil reading source")
	}
	if thresholdRepo == nil {
		return nil, errors.New("alerts: nil threshold repository")
	}
	if alertRepo == nil {
		return nil, errors.New("alerts: nil alert repository")
	}
	if runs == nil {
		return nil, errors.New("alerts: nil run repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	processor := &Processor{
		readings:   readings,
		thresholds: thresholdRepo,
		alerts:     alertRepo,
		runs:       runs,
		clock:      systemClock{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(processor)
	}
	return processor, nil
}

// RunCycle executes one processing cycle. Errors inside the cycle are
// recorded as a failed run entry and swallowed; only lock acquisition
// failures surface to the caller.
func (p *Processor) RunCycle(ctx context.Context) (CycleResult, error) {
	if p == nil {
		return CycleResult{}, errors.New("alerts: nil processor")
	}

	if p.lock != nil {
		acquired, err := p.lock.TryLock(ctx)
		if err != nil {
			return CycleResult{}, err
		}
		if !acquired {
			p.logger.Printf("alerts: cycle already running, skipping")
			return CycleResult{Skipped: true, Success: true}, nil
		}
		defer func() {
			if err := p.lock.Unlock(ctx); err != nil {
				p.logger.Printf("alerts: unlock error: %v", err)
			}
		}()
	}

	started := p.clock.Now()
	result, err := p.cycle(ctx)
	duration := p.clock.Now().Sub(started)
	if err != nil {
		metrics.ObserveAlertCycle(metrics.ResultError, duration)
		p.logger.Printf("alerts: cycle failed: %v", err)
		p.recordFailure(ctx, err)
		return CycleResult{Success: false}, nil
	}
	metrics.ObserveAlertCycle(metrics.ResultSuccess, duration)
	return result, nil
}

func (p *Processor) cycle(ctx context.Context) (CycleResult, error) {
	watermark, err := p.watermark(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	readings, err := p.readings.Since(ctx, watermark)
	if err != nil {
		return CycleResult{}, err
	}
	if len(readings) == 0 {
		// No-op run: the watermark stays where it is and the log
		// gets no entry.
		return CycleResult{Success: true}, nil
	}

	// Thresholds are re-read every cycle so operator edits apply to
	// the next scan without a restart.
	set, err := p.thresholds.FindAll(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	now := p.clock.Now().UTC()
	var generated []alerts.Alert
	for _, reading := range readings {
		generated = append(generated, alerts.Evaluate(reading, set, now)...)
	}

	if len(generated) > 0 {
		if err := p.alerts.InsertBatch(ctx, generated); err != nil {
			return CycleResult{}, err
		}
	}

	lastReading := readings[len(readings)-1].Timestamp.UTC()
	run := alerts.ProcessingRun{
		// The watermark advances to the last reading actually
		// persisted, not wall-clock now, so a crash between cycles
		// can never skip readings.
		ProcessedTS:       lastReading,
		LastReadingTime:   &lastReading,
		ReadingsProcessed: len(readings),
		AlertsGenerated:   len(generated),
		Success:           true,
		CreatedAt:         now,
	}
	if err := p.runs.Insert(ctx, run); err != nil {
		return CycleResult{}, err
	}

	metrics.AddReadingsProcessed(len(readings))
	metrics.AddAlertsGenerated(len(generated))
	p.logger.Printf("alerts: cycle complete readings=%d alerts=%d watermark=%s",
		len(readings), len(generated), lastReading.Format(time.RFC3339))

	if p.notifier != nil && len(generated) > 0 {
		p.notifier.Notify(ctx, generated)
	}

	return CycleResult{
		ReadingsProcessed: len(readings),
		AlertsGenerated:   len(generated),
		Success:           true,
	}, nil
}

func (p *Processor) watermark(ctx context.Context) (time.Time, error) {
	latest, err := p.runs.Latest(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		// First run processes all history.
		return time.Unix(0, 0).UTC(), nil
	}
	return latest.ProcessedTS.UTC(), nil
}

func (p *Processor) recordFailure(ctx context.Context, cause error) {
	// Re-read the watermark so the failed entry carries it forward
	// unchanged; the next cycle retries the same range.
	watermark, err := p.watermark(ctx)
	if err != nil {
		p.logger.Printf("alerts: failure watermark lookup error: %v", err)
		return
	}
	run := alerts.ProcessingRun{
		ProcessedTS: watermark,
		Success:     false,
		Error:       cause.Error(),
		CreatedAt:   p.clock.Now().UTC(),
	}
	if err := p.runs.Insert(ctx, run); err != nil {
		p.logger.Printf("alerts: failure log insert error: %v", err)
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
