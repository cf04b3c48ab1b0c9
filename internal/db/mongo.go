// Package db persists engine snapshots. The engine never touches storage
// directly; it hands committed snapshots to a SnapshotStore and is seeded
// from one at startup.
package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unibike/campus-bikeshare/internal/models"
)

// SnapshotStore is the persistence collaborator: Load seeds the engine at
// startup, Save stores the state after a committed mutation.
type SnapshotStore interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snapshot *models.Snapshot) error
}

// ConnectMongo connects to MongoDB using the MONGO_URI environment variable.
func ConnectMongo() (*mongo.Client, error) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

const (
	bikesCollection    = "bikes"
	stationsCollection = "stations"
	usersCollection    = "users"
	recordsCollection  = "rental_records"
)

// MongoSnapshotStore implements SnapshotStore on one collection per entity
// kind.
type MongoSnapshotStore struct {
	Database *mongo.Database
}

// Load reads the full persisted state. A database that has never been
// written yields an empty snapshot, not an error.
func (s *MongoSnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{}

	if err := s.loadAll(ctx, bikesCollection, &snapshot.Bikes); err != nil {
		return nil, errors.Wrap(err, "load bikes")
	}
	if err := s.loadAll(ctx, stationsCollection, &snapshot.Stations); err != nil {
		return nil, errors.Wrap(err, "load stations")
	}
	if err := s.loadAll(ctx, usersCollection, &snapshot.Users); err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	if err := s.loadAll(ctx, recordsCollection, &snapshot.Records); err != nil {
		return nil, errors.Wrap(err, "load rental records")
	}
	return snapshot, nil
}

func (s *MongoSnapshotStore) loadAll(ctx context.Context, name string, out interface{}) error {
	cursor, err := s.Database.Collection(name).Find(ctx, bson.M{})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// Save replaces the stored state with the snapshot, collection by
// collection.
func (s *MongoSnapshotStore) Save(ctx context.Context, snapshot *models.Snapshot) error {
	if err := s.replaceAll(ctx, bikesCollection, toDocs(snapshot.Bikes)); err != nil {
		return errors.Wrap(err, "save bikes")
	}
	if err := s.replaceAll(ctx, stationsCollection, toDocs(snapshot.Stations)); err != nil {
		return errors.Wrap(err, "save stations")
	}
	if err := s.replaceAll(ctx, usersCollection, toDocs(snapshot.Users)); err != nil {
		return errors.Wrap(err, "save users")
	}
	if err := s.replaceAll(ctx, recordsCollection, toDocs(snapshot.Records)); err != nil {
		return errors.Wrap(err, "save rental records")
	}
	return nil
}

func (s *MongoSnapshotStore) replaceAll(ctx context.Context, name string, docs []interface{}) error {
	collection := s.Database.Collection(name)
	if _, err := collection.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := collection.InsertMany(ctx, docs)
	return err
}

func toDocs[T any](items []T) []interface{} {
	docs := make([]interface{}, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	return docs
}
