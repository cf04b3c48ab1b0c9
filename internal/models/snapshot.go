package models

// Snapshot is the full persisted state of the system: everything the engine
// needs to rebuild its registries at startup, and everything the persistence
// collaborator stores after a committed mutation.
type Snapshot struct {
	Bikes    []Bike         `bson:"bikes" json:"bikes"`
	Stations []Station      `bson:"stations" json:"stations"`
	Users    []User         `bson:"users" json:"users"`
	Records  []RentalRecord `bson:"records" json:"records"`
}
