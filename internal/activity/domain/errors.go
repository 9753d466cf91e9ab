package activity

import "errors"

var (
	// ErrInvalidDayStart indicates a zero or non-boundary day key.
	ErrInvalidDayStart = errors.New("activity: invalid day start")
	// ErrInvalidIncrement indicates a non-positive increment.
	ErrInvalidIncrement = errors.New("activity: invalid increment")
)
