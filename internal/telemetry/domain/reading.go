package telemetry

import (
	"context"
	"math"
	"time"
)

// Channel names the monitored engine sensor channels.
const (
	ChannelRPM = "RPM"
	ChannelIAT = "IAT"
	ChannelCLT = "CLT"
	ChannelAFR = "AFR"
	ChannelMAP = "MAP"
	ChannelTPS = "TPS"
)

// Channels lists all monitored channels in display order.
var Channels = []string{ChannelRPM, ChannelIAT, ChannelCLT, ChannelAFR, ChannelMAP, ChannelTPS}

// Reading is one immutable, timestamped sensor document. Timestamps are
// stored in UTC. Missing numeric fields are persisted as NULL and read
// back as 0.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	RPM       float64   `json:"RPM"`
	IAT       float64   `json:"IAT"`
	CLT       float64   `json:"CLT"`
	AFR       float64   `json:"AFR"`
	MAP       float64   `json:"MAP"`
	TPS       float64   `json:"TPS"`
}

// Value returns the reading value for a channel and whether the channel
// carries a usable numeric value. NaN values are reported unusable so
// malformed documents skip evaluation instead of aborting a run.
func (r Reading) Value(channel string) (float64, bool) {
	var value float64
	switch channel {
	case ChannelRPM:
		value = r.RPM
	case ChannelIAT:
		value = r.IAT
	case ChannelCLT:
		value = r.CLT
	case ChannelAFR:
		value = r.AFR
	case ChannelMAP:
		value = r.MAP
	case ChannelTPS:
		value = r.TPS
	default:
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// SetValue assigns a channel value on the reading. Unknown channel
// names return ErrUnknownChannel.
func (r *Reading) SetValue(channel string, value float64) error {
	switch channel {
	case ChannelRPM:
		r.RPM = value
	case ChannelIAT:
		r.IAT = value
	case ChannelCLT:
		r.CLT = value
	case ChannelAFR:
		r.AFR = value
	case ChannelMAP:
		r.MAP = value
	case ChannelTPS:
		r.TPS = value
	default:
		return ErrUnknownChannel
	}
	return nil
}

// ReadingRepository persists and loads sensor readings.
type ReadingRepository interface {
	Insert(ctx context.Context, readings []Reading) error
	Latest(ctx context.Context) (*Reading, error)
	LatestInRange(ctx context.Context, from, to time.Time) (*Reading, error)
	Since(ctx context.Context, after time.Time) ([]Reading, error)
	Range(ctx context.Context, from, to time.Time) ([]Reading, error)
	Count(ctx context.Context) (int64, error)
}

// ChannelStats aggregates one channel over a range.
type ChannelStats struct {
	Channel string  `json:"channel"`
	Min     float64 `json:"min"`
	Avg     float64 `json:"avg"`
	Max     float64 `json:"max"`
}

// InsightPoint is one bucketed average for a channel.
type InsightPoint struct {
	Bucket string  `json:"date"`
	Value  float64 `json:"value"`
}

// BucketGranularity selects the insight bucketing interval.
type BucketGranularity string

const (
	BucketHour  BucketGranularity = "hour"
	BucketDay   BucketGranularity = "day"
	BucketMonth BucketGranularity = "month"
)

// ReadingQuery serves aggregate views over stored readings.
type ReadingQuery interface {
	Stats(ctx context.Context, from, to time.Time) ([]ChannelStats, error)
	Insight(ctx context.Context, channel string, from, to time.Time, bucket BucketGranularity) ([]InsightPoint, error)
}
