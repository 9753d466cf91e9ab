package activity

import (
	"testing"
	"time"
)

var idleThreshold = 10*time.Minute + 30*time.Second

func TestClassifyNoPriorRecord(t *testing.T) {
	dayStart := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	reading := dayStart.Add(2 * time.Hour)
	if got := Classify(nil, dayStart, reading, idleThreshold); got != SessionFresh {
		t.Fatalf("expected SessionFresh, got %v", got)
	}
}

func TestClassifyCarryoverFromPreviousDay(t *testing.T) {
	dayStart := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	prior := &DailyRecord{
		DayStart:      dayStart,
		ActiveTime:    120,
		LastProcessed: dayStart.Add(-30 * time.Minute),
	}
	reading := dayStart.Add(time.Hour)
	if got := Classify(prior, dayStart, reading, idleThreshold); got != SessionFresh {
		t.Fatalf("expected SessionFresh for stale watermark, got %v", got)
	}
}

func TestClassifyContinuous(t *testing.T) {
	dayStart := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	prior := &DailyRecord{
		DayStart:      dayStart,
		ActiveTime:    30,
		LastProcessed: dayStart.Add(time.Hour),
	}
	reading := prior.LastProcessed.Add(10 * time.Minute)
	if got := Classify(prior, dayStart, reading, idleThreshold); got != SessionContinuous {
		t.Fatalf("expected SessionContinuous, got %v", got)
	}
}

func TestClassifyResumedAfterIdleGap(t *testing.T) {
	dayStart := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	prior := &DailyRecord{
		DayStart:      dayStart,
		ActiveTime:    30,
		LastProcessed: dayStart.Add(time.Hour),
	}
	reading := prior.LastProcessed.Add(idleThreshold + time.Millisecond)
	if got := Classify(prior, dayStart, reading, idleThreshold); got != SessionResumed {
		t.Fatalf("expected SessionResumed, got %v", got)
	}
}

func TestClassifyGapExactlyAtThresholdIsContinuous(t *testing.T) {
	dayStart := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	prior := &DailyRecord{
		DayStart:      dayStart,
		LastProcessed: dayStart.Add(time.Hour),
	}
	reading := prior.LastProcessed.Add(idleThreshold)
	if got := Classify(prior, dayStart, reading, idleThreshold); got != SessionContinuous {
		t.Fatalf("expected SessionContinuous at exact threshold, got %v", got)
	}
}
