package models

import (
	"time"
)

// BikeStatus represents the lifecycle state of a bike.
type BikeStatus string

const (
	BikeAvailable     BikeStatus = "available"
	BikeReserved      BikeStatus = "reserved"
	BikeRented        BikeStatus = "rented"
	BikeInMaintenance BikeStatus = "in_maintenance"
)

// IsValidBikeStatus checks if a bike status is valid
func IsValidBikeStatus(status BikeStatus) bool {
	switch status {
	case BikeAvailable, BikeReserved, BikeRented, BikeInMaintenance:
		return true
	default:
		return false
	}
}

// Bike represents a single bike in the fleet. Only the fields that are
// meaningful for the current status are set: StationID is nil while rented
// or in maintenance, ReservedBy and ReserveUntil are nil unless reserved.
type Bike struct {
	ID           string     `bson:"_id" json:"id"`
	Status       BikeStatus `bson:"status" json:"status"`
	StationID    *string    `bson:"station_id,omitempty" json:"station_id,omitempty"`
	ReservedBy   *string    `bson:"reserved_by,omitempty" json:"reserved_by,omitempty"`
	ReserveUntil *time.Time `bson:"reserve_until,omitempty" json:"reserve_until,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// Docked reports whether the bike is a member of a station's inventory.
func (b *Bike) Docked() bool {
	return b.StationID != nil && (b.Status == BikeAvailable || b.Status == BikeReserved)
}

// ReservationExpired reports whether a reserved bike's hold has lapsed at now.
func (b *Bike) ReservationExpired(now time.Time) bool {
	return b.Status == BikeReserved && b.ReserveUntil != nil && !b.ReserveUntil.After(now)
}
