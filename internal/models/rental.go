package models

import (
	"time"
)

// RentalRecord is the ledger entry for one rental. It is created open when
// the rental starts and sealed exactly once at return, when EndedAt,
// ToStationID and Cost are filled in. A sealed record is never modified.
type RentalRecord struct {
	ID            string     `bson:"_id" json:"id"`
	UserID        string     `bson:"user_id" json:"user_id"`
	BikeID        string     `bson:"bike_id" json:"bike_id"`
	FromStationID string     `bson:"from_station_id" json:"from_station_id"`
	ToStationID   *string    `bson:"to_station_id,omitempty" json:"to_station_id,omitempty"`
	StartedAt     time.Time  `bson:"started_at" json:"started_at"`
	EndedAt       *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	Cost          float64    `bson:"cost" json:"cost"`
}

// Open reports whether the record has not been sealed yet.
func (r *RentalRecord) Open() bool {
	return r.EndedAt == nil
}
