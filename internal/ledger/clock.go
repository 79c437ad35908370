package ledger

import "time"

// Clock supplies the unix timestamp stamped on each record.
type Clock interface {
	Now() int64
}

// SystemClock reads wall-clock time in seconds.
type SystemClock struct{}

// Now returns the current unix time in seconds.
func (SystemClock) Now() int64 { return time.Now().Unix() }

// FixedClock always returns the same timestamp.
type FixedClock int64

// Now returns the fixed timestamp.
func (c FixedClock) Now() int64 { return int64(c) }
