package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unibike/campus-bikeshare/internal/models"
)

// stationRegistry owns stations and their bike membership. It depends on the
// bike registry for bike status only, when filtering available bikes. Not
// safe for concurrent use; the engine serializes access.
type stationRegistry struct {
	stations map[string]*models.Station
	bikes    *bikeRegistry
	now      func() time.Time
}

func newStationRegistry(bikes *bikeRegistry, now func() time.Time) *stationRegistry {
	return &stationRegistry{stations: make(map[string]*models.Station), bikes: bikes, now: now}
}

func (r *stationRegistry) get(id string) (*models.Station, error) {
	station, ok := r.stations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return station, nil
}

// nameTaken reports whether another station already uses the name.
// Station names are unique case-insensitively.
func (r *stationRegistry) nameTaken(name, excludeID string) bool {
	for id, station := range r.stations {
		if id != excludeID && strings.EqualFold(station.Name, name) {
			return true
		}
	}
	return false
}

func (r *stationRegistry) create(name, location string, capacity int) (*models.Station, error) {
	if name == "" || capacity <= 0 {
		return nil, ErrInvalidArgument
	}
	if r.nameTaken(name, "") {
		return nil, ErrConflict
	}
	now := r.now()
	station := &models.Station{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  location,
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.stations[station.ID] = station
	return station, nil
}

func (r *stationRegistry) add(station *models.Station) error {
	if station.Capacity <= 0 {
		return ErrInvalidArgument
	}
	if _, ok := r.stations[station.ID]; ok {
		return ErrConflict
	}
	if r.nameTaken(station.Name, "") {
		return ErrConflict
	}
	r.stations[station.ID] = station
	return nil
}

// remove deletes a station. Removal is blocked while any bike is docked.
func (r *stationRegistry) remove(id string) error {
	station, err := r.get(id)
	if err != nil {
		return err
	}
	if len(station.BikeIDs) > 0 {
		return ErrConflict
	}
	delete(r.stations, id)
	return nil
}

// dock adds a bike to the station's inventory, preserving insertion order.
func (r *stationRegistry) dock(stationID, bikeID string) error {
	station, err := r.get(stationID)
	if err != nil {
		return err
	}
	if station.Holds(bikeID) {
		return nil
	}
	if station.Full() {
		return ErrCapacityExceeded
	}
	station.BikeIDs = append(station.BikeIDs, bikeID)
	station.UpdatedAt = r.now()
	return nil
}

func (r *stationRegistry) undock(stationID, bikeID string) error {
	station, err := r.get(stationID)
	if err != nil {
		return err
	}
	for i, id := range station.BikeIDs {
		if id == bikeID {
			station.BikeIDs = append(station.BikeIDs[:i], station.BikeIDs[i+1:]...)
			station.UpdatedAt = r.now()
			return nil
		}
	}
	return ErrNotFound
}

// availableBikes returns a snapshot of the bikes docked at the station whose
// status is Available, in docking order. The result does not track later
// mutations.
func (r *stationRegistry) availableBikes(stationID string) ([]models.Bike, error) {
	station, err := r.get(stationID)
	if err != nil {
		return nil, err
	}
	var out []models.Bike
	for _, bikeID := range station.BikeIDs {
		bike, err := r.bikes.get(bikeID)
		if err != nil {
			continue
		}
		if bike.Status == models.BikeAvailable {
			out = append(out, *bike)
		}
	}
	return out, nil
}

// list returns copies of all stations, sorted by name.
func (r *stationRegistry) list() []models.Station {
	out := make([]models.Station, 0, len(r.stations))
	for _, station := range r.stations {
		copied := *station
		copied.BikeIDs = append([]string(nil), station.BikeIDs...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
