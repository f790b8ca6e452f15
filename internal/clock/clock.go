// Package clock provides crawler.Clock implementations.
package clock

import "time"

// System reads the wall clock in a fixed location.
type System struct {
	loc *time.Location
}

// New returns a System clock. A nil location means time.Local, which is what
// dump file names are stamped with.
func New(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{loc: loc}
}

// Now returns the current time in the clock's location.
func (c System) Now() time.Time {
	return time.Now().In(c.loc)
}

// Fixed always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}
