package application

import (
	"context"
	"log"
	"testing"
	"time"

	activity "engine-monitor/internal/activity/domain"
	telemetry "engine-monitor/internal/telemetry/domain"
	"engine-monitor/internal/wib"
)

const (
	testIncrement = 10
	testIdle      = 10*time.Minute + 30*time.Second
)

type stubReadings struct {
	reading *telemetry.Reading
}

func (s *stubReadings) LatestInRange(_ context.Context, from, to time.Time) (*telemetry.Reading, error) {
	if s.reading == nil {
		return nil, nil
	}
	ts := s.reading.Timestamp
	if ts.Before(from) || ts.After(to) {
		return nil, nil
	}
	reading := *s.reading
	return &reading, nil
}

// memRecords mirrors the conditional-upsert semantics of the Postgres
// repository: increments only apply for a newer reading timestamp, and a
// watermark older than the day start resets the counter.
type memRecords struct {
	records map[time.Time]*activity.DailyRecord
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[time.Time]*activity.DailyRecord)}
}

func (m *memRecords) FindByDay(_ context.Context, dayStart time.Time) (*activity.DailyRecord, error) {
	record, ok := m.records[dayStart]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (m *memRecords) ApplyIncrement(_ context.Context, dayStart time.Time, increment int, readingTS time.Time) (*activity.DailyRecord, bool, error) {
	record, ok := m.records[dayStart]
	if !ok {
		record = &activity.DailyRecord{
			DayStart:      dayStart,
			ActiveTime:    increment,
			LastProcessed: readingTS,
			IsActive:      true,
		}
		m.records[dayStart] = record
		copied := *record
		return &copied, true, nil
	}
	if !record.LastProcessed.Before(readingTS) {
		copied := *record
		return &copied, false, nil
	}
	if record.LastProcessed.Before(dayStart) {
		record.ActiveTime = increment
	} else {
		record.ActiveTime += increment
	}
	record.LastProcessed = readingTS
	record.IsActive = true
	copied := *record
	return &copied, true, nil
}

func (m *memRecords) History(_ context.Context, _, _ time.Time) ([]activity.DailyRecord, error) {
	return nil, nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, readings *stubReadings, records activity.Repository, clock *fixedClock) *Service {
	t.Helper()
	service, err := NewService(readings, records, testIncrement, testIdle, log.New(testWriter{t}, "", 0), WithClock(clock))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestEngineStatusIdempotentForSameReading(t *testing.T) {
	now := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	reading := &telemetry.Reading{Timestamp: now.Add(-time.Minute), RPM: 1500}
	readings := &stubReadings{reading: reading}
	records := newMemRecords()
	clock := &fixedClock{now: now}
	service := newTestService(t, readings, records, clock)

	first, err := service.EngineStatus(context.Background())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !first.IsActive || first.TodayActiveTime != testIncrement {
		t.Fatalf("expected active with %d minutes, got %+v", testIncrement, first)
	}

	// Same reading one second later must not change the counter.
	clock.now = now.Add(time.Second)
	second, err := service.EngineStatus(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.TodayActiveTime != testIncrement {
		t.Fatalf("expected unchanged %d minutes, got %d", testIncrement, second.TodayActiveTime)
	}
	if !second.IsActive {
		t.Fatalf("expected still active")
	}
}

func TestEngineStatusStartsFreshOnNewDay(t *testing.T) {
	dayD := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	records := newMemRecords()
	records.records[dayD] = &activity.DailyRecord{
		DayStart:      dayD,
		ActiveTime:    120,
		LastProcessed: dayD.Add(6 * time.Hour),
		IsActive:      true,
	}

	// A reading in day D+1.
	now := dayD.Add(24*time.Hour + 2*time.Hour)
	reading := &telemetry.Reading{Timestamp: now.Add(-time.Minute)}
	service := newTestService(t, &stubReadings{reading: reading}, records, &fixedClock{now: now})

	status, err := service.EngineStatus(context.Background())
	if err != nil {
		t.Fatalf("engine status: %v", err)
	}
	if status.TodayActiveTime != testIncrement {
		t.Fatalf("expected fresh %d minutes for new day, got %d", testIncrement, status.TodayActiveTime)
	}
	if records.records[dayD].ActiveTime != 120 {
		t.Fatalf("previous day record must stay untouched")
	}
}

func TestEngineStatusAccumulatesPerReading(t *testing.T) {
	base := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	readings := &stubReadings{}
	records := newMemRecords()
	clock := &fixedClock{}
	service := newTestService(t, readings, records, clock)

	const n = 6
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Minute)
		readings.reading = &telemetry.Reading{Timestamp: ts}
		clock.now = ts.Add(time.Minute)
		status, err := service.EngineStatus(context.Background())
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		want := (i + 1) * testIncrement
		if status.TodayActiveTime != want {
			t.Fatalf("call %d: expected %d minutes, got %d", i, want, status.TodayActiveTime)
		}
	}
}

func TestEngineStatusInactiveWhenFeedStale(t *testing.T) {
	readingTS := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	dayStart := wib.DayStart(readingTS)
	records := newMemRecords()
	records.records[dayStart] = &activity.DailyRecord{
		DayStart:      dayStart,
		ActiveTime:    40,
		LastProcessed: readingTS,
		IsActive:      true,
	}
	readings := &stubReadings{reading: &telemetry.Reading{Timestamp: readingTS}}
	clock := &fixedClock{now: readingTS.Add(testIdle + time.Millisecond)}
	service := newTestService(t, readings, records, clock)

	status, err := service.EngineStatus(context.Background())
	if err != nil {
		t.Fatalf("engine status: %v", err)
	}
	if status.IsActive {
		t.Fatalf("expected inactive at threshold + 1ms")
	}
	if status.TodayActiveTime != 40 {
		t.Fatalf("expected stored 40 minutes, got %d", status.TodayActiveTime)
	}
	if records.records[dayStart].ActiveTime != 40 {
		t.Fatalf("stale path must not mutate the record")
	}
}

func TestEngineStatusResumedSessionStillAccumulates(t *testing.T) {
	base := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	dayStart := wib.DayStart(base)
	records := newMemRecords()
	records.records[dayStart] = &activity.DailyRecord{
		DayStart:      dayStart,
		ActiveTime:    30,
		LastProcessed: base,
		IsActive:      true,
	}

	// New reading after an idle gap: counter adds, never resets.
	resumeTS := base.Add(2 * time.Hour)
	readings := &stubReadings{reading: &telemetry.Reading{Timestamp: resumeTS}}
	clock := &fixedClock{now: resumeTS.Add(time.Minute)}
	service := newTestService(t, readings, records, clock)

	status, err := service.EngineStatus(context.Background())
	if err != nil {
		t.Fatalf("engine status: %v", err)
	}
	if status.TodayActiveTime != 30+testIncrement {
		t.Fatalf("expected %d minutes, got %d", 30+testIncrement, status.TodayActiveTime)
	}
}

func TestEngineStatusEmptyDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	service := newTestService(t, &stubReadings{}, newMemRecords(), &fixedClock{now: now})

	status, err := service.EngineStatus(context.Background())
	if err != nil {
		t.Fatalf("engine status: %v", err)
	}
	if status.IsActive || status.TodayActiveTime != 0 {
		t.Fatalf("expected inactive zero-minute day, got %+v", status)
	}
	if status.LatestDataTimestamp != nil {
		t.Fatalf("expected nil latest timestamp")
	}
}
