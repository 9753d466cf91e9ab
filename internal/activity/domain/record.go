package activity

import (
	"context"
	"time"
)

// DailyRecord is the single mutable record for one WIB business day.
// ActiveTime only grows within a day; a new day starts a fresh record.
type DailyRecord struct {
	DayStart      time.Time `json:"date"`
	ActiveTime    int       `json:"activeTime"`
	LastProcessed time.Time `json:"lastProcessedTimestamp"`
	IsActive      bool      `json:"isActive"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session classifies how a new reading relates to the stored record.
type Session int

const (
	// SessionFresh is the first qualifying reading of a day, or the
	// first after a record whose watermark predates the day start.
	SessionFresh Session = iota
	// SessionContinuous extends the current run of readings.
	SessionContinuous
	// SessionResumed follows an idle gap longer than the threshold.
	// The counter still accumulates; only the session bookkeeping
	// (log line, isActive transition) distinguishes this case.
	SessionResumed
)

// Classify decides the session transition for a reading against the
// stored record. prior may be nil when no record exists for the day.
func Classify(prior *DailyRecord, dayStart, readingTS time.Time, idleThreshold time.Duration) Session {
	if prior == nil || prior.LastProcessed.IsZero() {
		return SessionFresh
	}
	if prior.LastProcessed.Before(dayStart) {
		// Carryover record from a previous day. The counter must
		// restart rather than inherit yesterday's minutes.
		return SessionFresh
	}
	if readingTS.Sub(prior.LastProcessed) > idleThreshold {
		return SessionResumed
	}
	return SessionContinuous
}

// Repository persists daily activity records. ApplyIncrement must be
// atomic: the compare-and-set guard on the stored watermark makes
// concurrent status requests converge on a single increment per reading.
type Repository interface {
	FindByDay(ctx context.Context, dayStart time.Time) (*DailyRecord, error)
	// ApplyIncrement folds one reading into the day's record. The
	// update only applies when readingTS is newer than the stored
	// LastProcessed; the returned record reflects the row after the
	// call either way, with applied reporting whether this call won.
	ApplyIncrement(ctx context.Context, dayStart time.Time, increment int, readingTS time.Time) (record *DailyRecord, applied bool, err error)
	History(ctx context.Context, from, to time.Time) ([]DailyRecord, error)
}
