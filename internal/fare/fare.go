// Package fare computes the cost of a ride from its duration.
package fare

import (
	"math"
	"time"
)

const (
	// DefaultBaseRate is charged once per ride.
	DefaultBaseRate = 1.00
	// DefaultPerMinuteRate is charged per whole elapsed minute of the
	// ride; partial minutes beyond the first are not billed.
	DefaultPerMinuteRate = 0.15
)

// Calculator computes ride fares. The zero value is not usable; use New.
type Calculator struct {
	BaseRate      float64
	PerMinuteRate float64
}

// New returns a Calculator with the default campus rates.
func New() Calculator {
	return Calculator{BaseRate: DefaultBaseRate, PerMinuteRate: DefaultPerMinuteRate}
}

// Compute returns the fare for a ride of the given number of minutes,
// rounded to cents. Durations below one minute are billed as one minute,
// so a same-minute return still incurs the minimum fare.
func (c Calculator) Compute(minutes int64) float64 {
	if minutes < 1 {
		minutes = 1
	}
	cost := c.BaseRate + float64(minutes)*c.PerMinuteRate
	return math.Round(cost*100) / 100
}

// ComputeDuration is Compute for a time.Duration, billing whole elapsed
// minutes.
func (c Calculator) ComputeDuration(d time.Duration) float64 {
	return c.Compute(int64(d / time.Minute))
}
