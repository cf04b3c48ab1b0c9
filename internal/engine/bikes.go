package engine

import (
	"sort"
	"time"

	"github.com/unibike/campus-bikeshare/internal/models"
)

// StatusFields carries the per-status fields for a bike transition. setStatus
// rebuilds the bike's field set from it, so fields from the previous status
// cannot leak into the next one.
type StatusFields struct {
	StationID    *string
	ReservedBy   *string
	ReserveUntil *time.Time
}

// bikeRegistry owns the set of bikes. It is not safe for concurrent use;
// the engine serializes all access under its own lock.
type bikeRegistry struct {
	bikes map[string]*models.Bike
	now   func() time.Time
}

func newBikeRegistry(now func() time.Time) *bikeRegistry {
	return &bikeRegistry{bikes: make(map[string]*models.Bike), now: now}
}

func (r *bikeRegistry) get(id string) (*models.Bike, error) {
	bike, ok := r.bikes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return bike, nil
}

func (r *bikeRegistry) add(bike *models.Bike) error {
	if !models.IsValidBikeStatus(bike.Status) {
		return ErrInvalidArgument
	}
	if _, ok := r.bikes[bike.ID]; ok {
		return ErrConflict
	}
	r.bikes[bike.ID] = bike
	return nil
}

// remove deletes a bike. Removal is blocked while the bike is rented.
func (r *bikeRegistry) remove(id string) error {
	bike, err := r.get(id)
	if err != nil {
		return err
	}
	if bike.Status == models.BikeRented {
		return ErrConflict
	}
	delete(r.bikes, id)
	return nil
}

// setStatus is the single mutation entry point for bike state. Every
// transition, including the expiry sweep, goes through here. The fields not
// valid for the new status are cleared unconditionally.
func (r *bikeRegistry) setStatus(id string, status models.BikeStatus, fields StatusFields) error {
	bike, err := r.get(id)
	if err != nil {
		return err
	}

	switch status {
	case models.BikeAvailable:
		if fields.StationID == nil {
			return ErrInvalidArgument
		}
		bike.StationID = fields.StationID
		bike.ReservedBy = nil
		bike.ReserveUntil = nil
	case models.BikeReserved:
		if fields.StationID == nil || fields.ReservedBy == nil || fields.ReserveUntil == nil {
			return ErrInvalidArgument
		}
		bike.StationID = fields.StationID
		bike.ReservedBy = fields.ReservedBy
		bike.ReserveUntil = fields.ReserveUntil
	case models.BikeRented, models.BikeInMaintenance:
		bike.StationID = nil
		bike.ReservedBy = nil
		bike.ReserveUntil = nil
	default:
		return ErrInvalidArgument
	}

	bike.Status = status
	bike.UpdatedAt = r.now()
	return nil
}

// list returns copies of all bikes, sorted by id.
func (r *bikeRegistry) list() []models.Bike {
	out := make([]models.Bike, 0, len(r.bikes))
	for _, bike := range r.bikes {
		out = append(out, *bike)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
