// Package wib centralizes Western Indonesian Time (UTC+7) day-boundary
// math. The business day for activity accounting starts at WIB midnight,
// which is 17:00 UTC on the previous UTC calendar day. Every day-keyed
// lookup in the system derives its bounds from this package so that the
// accumulator, the alert listing and the reporting queries agree on
// where a day begins.
package wib

import "time"

// Offset is the fixed WIB offset from UTC. WIB has no DST.
const Offset = 7 * time.Hour

// Location is the fixed-offset WIB location.
var Location = time.FixedZone("WIB", int(Offset/time.Second))

// DayStart returns the UTC instant at which the WIB day containing the
// given instant begins (17:00 UTC on the preceding UTC calendar day).
func DayStart(instant time.Time) time.Time {
	local := instant.In(Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location)
	return midnight.UTC()
}

// DayBounds returns the inclusive start and end of the WIB day
// containing the given instant, both in UTC. The end is the last
// representable millisecond of the day, 16:59:59.999 UTC.
func DayBounds(instant time.Time) (start, end time.Time) {
	start = DayStart(instant)
	end = start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// NextDayStart returns the start of the WIB day following the one
// containing the given instant.
func NextDayStart(instant time.Time) time.Time {
	return DayStart(instant).Add(24 * time.Hour)
}

// ToWIB shifts an instant into the WIB location.
func ToWIB(instant time.Time) time.Time {
	return instant.In(Location)
}

// DayKey is the persisted representation of a WIB day boundary.
type DayKey string

// NewDayKey builds a DayKey for the WIB day containing the instant.
func NewDayKey(instant time.Time) DayKey {
	return DayKey(ToWIB(instant).Format("20060102"))
}

// String returns the raw string for storage.
func (k DayKey) String() string { return string(k) }
