package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	lockserrors "clinicq/internal/locks/errors"
	"clinicq/pkg/config"
	mongotx "clinicq/pkg/db/mongo"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slot_locks"
)

// LockRepository persists reservation locks. The Mark* methods are
// conditional transitions out of the active state and report whether the
// lock matched.
type LockRepository interface {
	Create(ctx context.Context, lock *model.SlotLock) error
	FindByID(ctx context.Context, id string) (*model.SlotLock, error)

	MarkReleased(ctx context.Context, id string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
	MarkConfirmed(ctx context.Context, id string, now time.Time) (bool, error)

	FindStale(ctx context.Context, now time.Time, limit int) ([]*model.SlotLock, error)
	FindStaleBySlot(ctx context.Context, slotID string, now time.Time) ([]*model.SlotLock, error)
	CountActiveBySlot(ctx context.Context, slotIDs []string, now time.Time) (map[string]int, error)
}

type mongoLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoLockRepository) Create(ctx context.Context, lock *model.SlotLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", lockserrors.ErrDuplicate, lock.ID)
		}
		return fmt.Errorf("failed to create lock: %w", err)
	}
	return nil
}

func (r *mongoLockRepository) FindByID(ctx context.Context, id string) (*model.SlotLock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var lock model.SlotLock
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lock); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", lockserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find lock: %w", err)
	}
	return &lock, nil
}

func (r *mongoLockRepository) MarkReleased(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "state": model.LockActive},
		bson.M{"state": model.LockReleased, "released_at": at},
	)
}

// MarkExpired only matches locks whose TTL has elapsed at now.
func (r *mongoLockRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "state": model.LockActive, "expires_at": bson.M{"$lte": now}},
		bson.M{"state": model.LockExpired, "expired_at": now},
	)
}

// MarkConfirmed only matches locks that are still live at now.
func (r *mongoLockRepository) MarkConfirmed(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "state": model.LockActive, "expires_at": bson.M{"$gt": now}},
		bson.M{"state": model.LockConfirmed, "confirmed_at": now},
	)
}

func (r *mongoLockRepository) transition(ctx context.Context, filter, set bson.M) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update lock state: %w", err)
	}
	return result.MatchedCount == 1, nil
}

func (r *mongoLockRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]*model.SlotLock, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "expires_at", Value: 1}})
	return r.find(ctx, bson.M{"state": model.LockActive, "expires_at": bson.M{"$lte": now}}, opts)
}

func (r *mongoLockRepository) FindStaleBySlot(ctx context.Context, slotID string, now time.Time) ([]*model.SlotLock, error) {
	return r.find(ctx, bson.M{
		"slot_id":    slotID,
		"state":      model.LockActive,
		"expires_at": bson.M{"$lte": now},
	}, options.Find())
}

func (r *mongoLockRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.SlotLock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query locks: %w", err)
	}
	defer cursor.Close(ctx)

	locks := make([]*model.SlotLock, 0)
	if err := cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("failed to decode locks: %w", err)
	}
	return locks, nil
}

// CountActiveBySlot counts live locks per slot. Slots without any are absent
// from the result.
func (r *mongoLockRepository) CountActiveBySlot(ctx context.Context, slotIDs []string, now time.Time) (map[string]int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	counts := make(map[string]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"slot_id":    bson.M{"$in": slotIDs},
			"state":      model.LockActive,
			"expires_at": bson.M{"$gt": now},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$slot_id", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count active locks: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		SlotID string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode lock counts: %w", err)
	}
	for _, row := range rows {
		counts[row.SlotID] = row.Count
	}
	return counts, nil
}
