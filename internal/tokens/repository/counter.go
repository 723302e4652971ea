package repository

import (
	"context"
	"fmt"
	"time"

	tokenserrors "clinicq/internal/tokens/errors"
	"clinicq/pkg/config"
	mongotx "clinicq/pkg/db/mongo"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Token_counters"
)

// Counter atomically increments the (hospital, day) counter and returns the
// new value. The first call for a key returns 1.
type Counter interface {
	Increment(ctx context.Context, hospitalID, dayKey string) (int64, error)
}

type mongoCounter struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCounter(cfg *config.Config) Counter {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCounter{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (c *mongoCounter) Increment(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	value, err := c.increment(ctx, hospitalID, dayKey)
	if mongo.IsDuplicateKeyError(err) {
		// Two first issuances raced on the upsert and this one lost the
		// insert. Nothing was incremented, so the retry cannot skip a value.
		value, err = c.increment(ctx, hospitalID, dayKey)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", tokenserrors.ErrCounterUnavailable, err)
	}
	return value, nil
}

func (c *mongoCounter) increment(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"hospital_id": hospitalID, "day_key": dayKey}
	update := bson.M{
		"$inc": bson.M{"value": int64(1)},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter model.TokenCounter
	if err := c.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Value, nil
}
