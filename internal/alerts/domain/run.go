package alerts

import (
	"context"
	"time"
)

// ProcessingRun is one appended entry in the alert processing log. The
// newest entry's ProcessedTS is the watermark: every reading at or below
// it is guaranteed already scanned. Failed runs carry the previous
// watermark forward so the next cycle retries the same range instead of
// silently skipping readings.
type ProcessingRun struct {
	ProcessedTS       time.Time  `json:"processedTimestamp"`
	LastReadingTime   *time.Time `json:"lastReadingTime"`
	ReadingsProcessed int        `json:"readingsProcessed"`
	AlertsGenerated   int        `json:"alertsGenerated"`
	Success           bool       `json:"success"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// RunRepository persists the processing log. Append-only.
type RunRepository interface {
	Latest(ctx context.Context) (*ProcessingRun, error)
	Insert(ctx context.Context, run ProcessingRun) error
}

// CycleLock serializes processing cycles across schedulers. TryLock
// returns false without blocking when another cycle holds the lock.
type CycleLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}
