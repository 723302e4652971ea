package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "clinicq/internal/bookings/repository"
	locksrepo "clinicq/internal/locks/repository"
	"clinicq/internal/migrations/mongo/validators"
	slotsrepo "clinicq/internal/slots/repository"
	tokensrepo "clinicq/internal/tokens/repository"
	visitsrepo "clinicq/internal/visits/repository"
	"clinicq/pkg/logger"
)

var (
	SlotsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "hospital_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "slot_number", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}

	SlotLocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "slot_id", Value: 1},
			{Key: "state", Value: 1},
			{Key: "expires_at", Value: 1},
		}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "expires_at", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lock_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "hospital_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "status", Value: 1}}},
	}

	TokenCountersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "hospital_id", Value: 1}, {Key: "day_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	// one visit per booking; walk-ins carry no booking_id
	VisitsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().
				SetName(visitsrepo.VisitBookingIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"booking_id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{
				{Key: "hospital_id", Value: 1},
				{Key: "day_key", Value: 1},
				{Key: "token", Value: 1},
			},
			Options: options.Index().
				SetName(visitsrepo.VisitDayTokenIndex).
				SetUnique(true),
		},
	}

	PatientsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "hospital_id", Value: 1}}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// RunMigration creates the clinic collections with their schema validators
// and indexes. Existing collections get their validator replaced in place.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	collections := map[string]collectionDef{
		slotsrepo.CollectionName: {
			Indexes:   SlotsIndexes,
			Validator: validators.SlotValidator,
		},
		locksrepo.CollectionName: {
			Indexes:   SlotLocksIndexes,
			Validator: validators.SlotLockValidator,
		},
		bookingsrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		tokensrepo.CollectionName: {
			Indexes:   TokenCountersIndexes,
			Validator: validators.TokenCounterValidator,
		},
		visitsrepo.VisitsCollection: {
			Indexes:   VisitsIndexes,
			Validator: validators.VisitValidator,
		},
		// patients are owned by registration, only the lookup index is ours
		visitsrepo.PatientsCollection: {
			Indexes: PatientsIndexes,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All Mongo migrations applied", "collections", len(collections))
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Debug("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	created, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", len(created))
	return nil
}
