// Package clock supplies the time source every time-dependent component
// reads through: decay elapsed days, scheduling triggers and award
// timestamps all come from a single injected Clock.
package clock

import "time"

// Clock yields the current time. Implementations must be safe for
// concurrent use.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now returns the current wall-clock time in UTC.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
