package engine

import "time"

// Clock supplies transaction timestamps.
//
// The timestamp of a transaction is the only notion of "now" the ledger
// operations see, so overdue checks and audit fields are reproducible
// under a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC at second precision, the
// precision stored in ledger documents.
type SystemClock struct{}

// Now returns the current UTC time truncated to the second.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }
