package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	visitserrors "clinicq/internal/visits/errors"
	"clinicq/pkg/config"
	mongotx "clinicq/pkg/db/mongo"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PatientsCollection = "Patients"
	VisitsCollection   = "Visits"

	// Index names let a duplicate-key error be traced to its constraint.
	VisitBookingIndex  = "visit_booking_unique"
	VisitDayTokenIndex = "visit_day_token_unique"
)

// PatientDirectory looks patients up in the hospital's registry.
type PatientDirectory interface {
	FindPatient(ctx context.Context, hospitalID, patientID string) (*model.Patient, error)
}

// VisitRecorder persists queue visits and reads a hospital's daily queue.
type VisitRecorder interface {
	CreateVisit(ctx context.Context, visit *model.Visit) error
	// ListByDay returns the day's visits in token order.
	ListByDay(ctx context.Context, hospitalID, dayKey string, limit int, offset int64) ([]*model.Visit, error)
	CountByDay(ctx context.Context, hospitalID, dayKey string) (int64, error)
	FindByToken(ctx context.Context, hospitalID, dayKey string, token int64) (*model.Visit, error)
}

type mongoPatientDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPatientDirectory(cfg *config.Config) PatientDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPatientDirectory{
		cfg:        cfg,
		collection: db.Collection(PatientsCollection),
	}
}

func (d *mongoPatientDirectory) FindPatient(ctx context.Context, hospitalID, patientID string) (*model.Patient, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	var patient model.Patient
	err := d.collection.FindOne(ctx, bson.M{"_id": patientID, "hospital_id": hospitalID}).Decode(&patient)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", visitserrors.ErrPatientNotFound, patientID)
		}
		return nil, fmt.Errorf("failed to find patient: %w", err)
	}
	return &patient, nil
}

type mongoVisitRecorder struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVisitRecorder(cfg *config.Config) VisitRecorder {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVisitRecorder{
		cfg:        cfg,
		collection: db.Collection(VisitsCollection),
	}
}

func (r *mongoVisitRecorder) CreateVisit(ctx context.Context, visit *model.Visit) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, visit)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), VisitDayTokenIndex) {
				return fmt.Errorf("%w: %s/%s #%d", visitserrors.ErrDuplicateToken, visit.HospitalID, visit.DayKey, visit.Token)
			}
			return fmt.Errorf("%w: %s", visitserrors.ErrDuplicateVisit, visit.BookingID)
		}
		return fmt.Errorf("failed to create visit: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		visit.ID = oid.Hex()
	}
	return nil
}

func (r *mongoVisitRecorder) ListByDay(ctx context.Context, hospitalID, dayKey string, limit int, offset int64) ([]*model.Visit, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "token", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"hospital_id": hospitalID, "day_key": dayKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find visits: %w", err)
	}
	defer cursor.Close(ctx)

	visits := make([]*model.Visit, 0)
	if err = cursor.All(ctx, &visits); err != nil {
		return nil, fmt.Errorf("failed to decode visits: %w", err)
	}
	return visits, nil
}

func (r *mongoVisitRecorder) CountByDay(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"hospital_id": hospitalID, "day_key": dayKey})
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

func (r *mongoVisitRecorder) FindByToken(ctx context.Context, hospitalID, dayKey string, token int64) (*model.Visit, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var visit model.Visit
	err := r.collection.FindOne(ctx, bson.M{"hospital_id": hospitalID, "day_key": dayKey, "token": token}).Decode(&visit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s #%d", visitserrors.ErrVisitNotFound, hospitalID, dayKey, token)
		}
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}
	return &visit, nil
}
