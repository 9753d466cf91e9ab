package application

import (
	"context"
	"log"
	"time"
)

// Scheduler runs processing cycles on a fixed interval. One cycle runs
// at startup so a restarted process catches up immediately.
type Scheduler struct {
	processor *Processor
	interval  time.Duration
	logger    *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(processor *Processor, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{processor: processor, interval: interval, logger: logger}
}

// Start begins the scheduler loop. It blocks until ctx is cancelled.
// A failed cycle is logged and the loop continues on the next tick.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.processor == nil {
		return
	}
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.processor.RunCycle(ctx)
	if err != nil {
		s.logger.Printf("alerts: scheduled cycle error: %v", err)
		return
	}
	if !result.Success {
		s.logger.Printf("alerts: scheduled cycle recorded failure")
	}
}
