// Package clock provides the time source the ledger reads "now" from.
//
// Ledger code never calls time.Now() directly; it takes a Clock so tests can
// pin the current day.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.T
}

// FuncClock wraps a function as a Clock.
type FuncClock func() time.Time

// Now calls the wrapped function.
func (f FuncClock) Now() time.Time {
	return f()
}

// NewReal returns a Clock backed by the system time.
func NewReal() Clock {
	return RealClock{}
}

// NewFixed returns a Clock that always reports t.
func NewFixed(t time.Time) Clock {
	return FixedClock{T: t}
}
