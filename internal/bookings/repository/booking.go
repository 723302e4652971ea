package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "clinicq/internal/bookings/errors"
	"clinicq/pkg/config"
	mongotx "clinicq/pkg/db/mongo"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByLockID(ctx context.Context, lockID string) (*model.Booking, error)
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
	Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	CountByDateAndHospital(ctx context.Context, fromDate string) ([]model.BookingCount, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func bookingFilterToBSON(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.HospitalID != "" {
		filter["hospital_id"] = f.HospitalID
	}
	switch {
	case f.Date != "":
		filter["date"] = f.Date
	case f.FromDate != "":
		filter["date"] = bson.M{"$gte": f.FromDate}
	}
	if f.Mode != "" {
		filter["details.mode"] = f.Mode
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateLock, booking.LockID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoBookingRepository) FindByLockID(ctx context.Context, lockID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"lock_id": lockID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

// TransitionStatus moves a booking from one status to another only if it is
// still in the from status, stamping the matching timestamp field.
func (r *mongoBookingRepository) TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	set := bson.M{"status": to, "updated_at": at}
	switch to {
	case model.BookingCheckedIn:
		set["checked_in_at"] = at
	case model.BookingCancelled:
		set["cancelled_at"] = at
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	return result.MatchedCount == 1, nil
}

func (r *mongoBookingRepository) Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}, {Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bookingFilterToBSON(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bookingFilterToBSON(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// CountByDateAndHospital groups non-cancelled bookings on or after fromDate.
func (r *mongoBookingRepository) CountByDateAndHospital(ctx context.Context, fromDate string) ([]model.BookingCount, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"date":   bson.M{"$gte": fromDate},
			"status": bson.M{"$ne": model.BookingCancelled},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"date": "$date", "hospital_id": "$hospital_id"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":         0,
			"date":        "$_id.date",
			"hospital_id": "$_id.hospital_id",
			"count":       1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "hospital_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make([]model.BookingCount, 0)
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode booking counts: %w", err)
	}
	return counts, nil
}
