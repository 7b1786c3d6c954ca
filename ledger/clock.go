package ledger

import "time"

// =============================================================================
// CLOCK - Injected time source
// =============================================================================

// Clock abstracts "now" so the replay engine and default transaction dates
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Used by tests and scenario
// tooling to simulate elapsed months.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today returns the clock's current calendar date.
func Today(c Clock) Date { return DateOf(c.Now()) }
