//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "clinicq/internal/bookings/repository"
	locksrepo "clinicq/internal/locks/repository"
	slotsrepo "clinicq/internal/slots/repository"
	"clinicq/pkg/model"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultDatabaseName = "clinicq"
	ConnectionTimeout   = 10 * time.Second
)

// MongoHelper reads and cleans the service's collections directly.
type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

func NewMongoHelper(t *testing.T, mongoURI, dbName string) *MongoHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	return &MongoHelper{
		Client:   client,
		Database: client.Database(dbName),
		DBName:   dbName,
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

// Slot loads a slot document including its ledger counters.
func (m *MongoHelper) Slot(t *testing.T, slotID string) *model.Slot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(slotID)
	if err != nil {
		t.Fatalf("invalid slot id %q: %v", slotID, err)
	}
	var slot model.Slot
	if err := m.Database.Collection(slotsrepo.CollectionName).FindOne(ctx, bson.M{"_id": oid}).Decode(&slot); err != nil {
		t.Fatalf("failed to load slot %s: %v", slotID, err)
	}
	return &slot
}

// DeleteHospital removes every document the tests created for hospitalID.
func (m *MongoHelper) DeleteHospital(t *testing.T, hospitalID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range []string{slotsrepo.CollectionName, locksrepo.CollectionName, bookingsrepo.CollectionName} {
		result, err := m.Database.Collection(name).DeleteMany(ctx, bson.M{"hospital_id": hospitalID})
		if err != nil {
			t.Fatalf("failed to clean collection %s: %v", name, err)
		}
		t.Logf("Cleaned %d documents from collection: %s", result.DeletedCount, name)
	}
}
