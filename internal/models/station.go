package models

import (
	"time"
)

// Station represents a docking station with a fixed number of slots.
// BikeIDs holds the ids of bikes currently docked here, in insertion order.
type Station struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Location  string    `bson:"location" json:"location"`
	Capacity  int       `bson:"capacity" json:"capacity"`
	BikeIDs   []string  `bson:"bike_ids" json:"bike_ids"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Full reports whether every slot at the station is occupied.
func (s *Station) Full() bool {
	return len(s.BikeIDs) >= s.Capacity
}

// Holds reports whether the bike with the given id is docked at this station.
func (s *Station) Holds(bikeID string) bool {
	for _, id := range s.BikeIDs {
		if id == bikeID {
			return true
		}
	}
	return false
}
