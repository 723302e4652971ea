package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "clinicq/internal/slots/errors"
	"clinicq/pkg/config"
	mongotx "clinicq/pkg/db/mongo"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"
)

// SlotFilter narrows admin slot listings. Empty fields match everything.
type SlotFilter struct {
	HospitalID string
	Date       string
}

type SlotRepository interface {
	CreateMany(ctx context.Context, slots []*model.Slot) (created int, err error)
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByHospitalAndDates(ctx context.Context, hospitalID string, dates []string) ([]*model.Slot, error)
	FindAll(ctx context.Context, filter SlotFilter, limit int, offset int64) ([]*model.Slot, error)
	Count(ctx context.Context, filter SlotFilter) (int64, error)
	DistinctDates(ctx context.Context, hospitalID, fromDate, toDate string, limit int) ([]string, error)

	Hold(ctx context.Context, id string) error
	Unhold(ctx context.Context, id string) error
	Commit(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error

	DeleteIfUnused(ctx context.Context, id string) error
	DeleteUnusedByDate(ctx context.Context, hospitalID, date string) (int64, error)
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (f SlotFilter) toBSON() bson.M {
	filter := bson.M{}
	if f.HospitalID != "" {
		filter["hospital_id"] = f.HospitalID
	}
	if f.Date != "" {
		filter["date"] = f.Date
	}
	return filter
}

// CreateMany inserts slots unordered. Rows colliding with the
// (hospital_id, date, slot_number) unique index are skipped, not failed.
func (r *mongoSlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(slots))
	for _, s := range slots {
		oid := primitive.NewObjectID()
		s.ID = oid.Hex()
		s.CreatedAt = now
		s.UpdatedAt = now
		docs = append(docs, bson.M{
			"_id":          oid,
			"hospital_id":  s.HospitalID,
			"date":         s.Date,
			"slot_number":  s.SlotNumber,
			"start_time":   s.StartTime,
			"end_time":     s.EndTime,
			"max_capacity": s.MaxCapacity,
			"booked_count": 0,
			"held_count":   0,
			"created_at":   now,
			"updated_at":   now,
		})
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) && onlyDuplicateKeys(bulkErr) {
			// InsertedIDs lists every attempted document, including the rejected ones.
			return len(docs) - len(bulkErr.WriteErrors), nil
		}
		return 0, fmt.Errorf("failed to create slots: %w", err)
	}

	return len(result.InsertedIDs), nil
}

func onlyDuplicateKeys(bulkErr mongo.BulkWriteException) bool {
	if bulkErr.WriteConcernError != nil {
		return false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var slot model.Slot
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&slot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) FindByHospitalAndDates(ctx context.Context, hospitalID string, dates []string) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"hospital_id": hospitalID,
		"date":        bson.M{"$in": dates},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "slot_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := make([]*model.Slot, 0)
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) FindAll(ctx context.Context, filter SlotFilter, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "hospital_id", Value: 1}, {Key: "slot_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter.toBSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := make([]*model.Slot, 0)
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) Count(ctx context.Context, filter SlotFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter.toBSON())
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

// DistinctDates returns up to limit ascending dates in [fromDate, toDate) that
// have at least one slot row for the hospital.
func (r *mongoSlotRepository) DistinctDates(ctx context.Context, hospitalID, fromDate, toDate string, limit int) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"hospital_id": hospitalID,
			"date":        bson.M{"$gte": fromDate, "$lt": toDate},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$date"}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate slot dates: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Date string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode slot dates: %w", err)
	}

	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, row.Date)
	}
	return dates, nil
}

// Hold takes one unit of capacity for a new lock, only while booked+held < max.
func (r *mongoSlotRepository) Hold(ctx context.Context, id string) error {
	return r.conditionalInc(ctx, id,
		bson.M{"$expr": bson.M{"$lt": bson.A{bson.M{"$add": bson.A{"$booked_count", "$held_count"}}, "$max_capacity"}}},
		bson.M{"held_count": 1},
		slotserrors.ErrFull,
	)
}

// Unhold returns a held unit, never taking held_count below zero.
func (r *mongoSlotRepository) Unhold(ctx context.Context, id string) error {
	return r.conditionalInc(ctx, id,
		bson.M{"held_count": bson.M{"$gt": 0}},
		bson.M{"held_count": -1},
		slotserrors.ErrNoHold,
	)
}

// Commit converts one held unit into a booked unit.
func (r *mongoSlotRepository) Commit(ctx context.Context, id string) error {
	return r.conditionalInc(ctx, id,
		bson.M{
			"held_count": bson.M{"$gte": 1},
			"$expr":      bson.M{"$lt": bson.A{"$booked_count", "$max_capacity"}},
		},
		bson.M{"held_count": -1, "booked_count": 1},
		slotserrors.ErrFull,
	)
}

// Release frees one booked unit. Releasing at zero is a no-op.
func (r *mongoSlotRepository) Release(ctx context.Context, id string) error {
	err := r.conditionalInc(ctx, id,
		bson.M{"booked_count": bson.M{"$gt": 0}},
		bson.M{"booked_count": -1},
		errNothingBooked,
	)
	if errors.Is(err, errNothingBooked) {
		return nil
	}
	return err
}

var errNothingBooked = errors.New("nothing booked")

// conditionalInc applies inc when cond holds, as one single-document update.
// A miss is reported as ErrNotFound when the slot is gone, otherwise as onMiss.
func (r *mongoSlotRepository) conditionalInc(ctx context.Context, id string, cond bson.M, inc bson.M, onMiss error) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid}
	for k, v := range cond {
		filter[k] = v
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update slot counters: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check slot existence: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", onMiss, id)
}

func (r *mongoSlotRepository) DeleteIfUnused(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "booked_count": 0, "held_count": 0})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.DeletedCount == 1 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check slot existence: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", slotserrors.ErrInUse, id)
}

func (r *mongoSlotRepository) DeleteUnusedByDate(ctx context.Context, hospitalID, date string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{
		"hospital_id":  hospitalID,
		"date":         date,
		"booked_count": 0,
		"held_count":   0,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete slots by date: %w", err)
	}
	return result.DeletedCount, nil
}
