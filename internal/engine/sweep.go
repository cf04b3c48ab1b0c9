package engine

import (
	"github.com/unibike/campus-bikeshare/internal/models"
	"time"
)

// SweepExpired releases every reservation whose expiry is at or before now
// and returns how many were released. It is idempotent and uses the same
// mutation entry point as every other transition. Rent runs the same sweep
// synchronously before selecting a bike; this method serves the periodic
// background cadence.
func (e *Engine) SweepExpired(now time.Time) int {
	var released int
	_ = e.mutate("sweep", func() error {
		released = e.sweepLocked(now)
		if released == 0 {
			// Nothing changed; skip the commit notification.
			return errNoop
		}
		return nil
	})
	return released
}

// errNoop aborts a mutate call without reporting failure to the caller.
var errNoop = errNoopType{}

type errNoopType struct{}

func (errNoopType) Error() string { return "no-op" }

// sweepLocked must be called with the engine lock held.
func (e *Engine) sweepLocked(now time.Time) int {
	released := 0
	for _, bike := range e.bikes.bikes {
		if !bike.ReservationExpired(now) {
			continue
		}
		stationID := bike.StationID
		if err := e.bikes.setStatus(bike.ID, models.BikeAvailable, StatusFields{StationID: stationID}); err == nil {
			released++
		}
	}
	return released
}
