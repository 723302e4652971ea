package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "clinicq/internal/bookings/errors"
	"clinicq/internal/events"
	visitserrors "clinicq/internal/visits/errors"
	"clinicq/internal/visits/repository"
	"clinicq/internal/visits/validator"
	"clinicq/pkg/config"
	"clinicq/pkg/db"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/model"
	"clinicq/pkg/sanitizer"
	"clinicq/pkg/validation"
)

type BookingStore interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

type TokenIssuer interface {
	NextToken(ctx context.Context, hospitalID string, at time.Time) (int64, error)
}

type VisitService interface {
	CheckInAppointment(ctx context.Context, req *model.CheckInRequest) (*model.Visit, error)
	CheckInWalkIn(ctx context.Context, req *model.WalkInRequest) (*model.Visit, error)
	ListToday(ctx context.Context, hospitalID string, limit int, offset int64) ([]*model.Visit, int64, error)
	FindByToken(ctx context.Context, hospitalID string, token int64) (*model.Visit, error)
}

type visitService struct {
	bookings  BookingStore
	patients  repository.PatientDirectory
	visits    repository.VisitRecorder
	tokens    TokenIssuer
	tx        db.Transactor
	publisher events.Publisher
	validator *validator.VisitValidator
	cfg       *config.Config
}

func NewVisitService(
	bookings BookingStore,
	patients repository.PatientDirectory,
	visits repository.VisitRecorder,
	tokens TokenIssuer,
	tx db.Transactor,
	publisher events.Publisher,
	validator *validator.VisitValidator,
	cfg *config.Config,
) VisitService {
	return &visitService{
		bookings:  bookings,
		patients:  patients,
		visits:    visits,
		tokens:    tokens,
		tx:        tx,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

var errNotConfirmed = errors.New("booking is no longer confirmed")

// CheckInAppointment turns a confirmed booking into a waiting visit with a
// queue token. The token is issued before the transaction because the
// counter lives outside it; a failed check-in leaves a gap in the day's
// sequence but never a duplicate.
func (s *visitService) CheckInAppointment(ctx context.Context, req *model.CheckInRequest) (*model.Visit, error) {
	req.BookingID = sanitizer.NormalizeIdentifier(req.BookingID)
	req.PatientID = sanitizer.NormalizeIdentifier(req.PatientID)
	if err := s.validator.ValidateCheckIn(req); err != nil {
		return nil, validationError(err)
	}

	booking, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", req.BookingID)
		case errors.Is(err, bookingserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		default:
			s.cfg.Log.Error("Failed to load booking for check-in", "booking_id", req.BookingID, "error", err)
			return nil, apperrors.StorageUnavailable(err)
		}
	}
	if booking.Status != model.BookingConfirmed {
		return nil, apperrors.Conflict(fmt.Sprintf("Booking is %s and cannot be checked in", booking.Status))
	}

	patient, err := s.findPatient(ctx, booking.HospitalID, req.PatientID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Clock().UTC().Truncate(time.Millisecond)
	token, err := s.tokens.NextToken(ctx, booking.HospitalID, now)
	if err != nil {
		return nil, err
	}

	visit := &model.Visit{
		HospitalID: booking.HospitalID,
		PatientID:  patient.ID,
		BookingID:  booking.ID,
		DoctorID:   booking.Details.DoctorID,
		Token:      token,
		DayKey:     s.cfg.Calendar.DayKey(now),
		Source:     model.VisitSourceAppointment,
		Status:     model.VisitWaiting,
		CreatedAt:  now,
	}

	err = s.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.bookings.TransitionStatus(ctx, booking.ID, model.BookingConfirmed, model.BookingCheckedIn, now)
		if err != nil {
			return err
		}
		if !ok {
			return errNotConfirmed
		}
		return s.visits.CreateVisit(ctx, visit)
	})
	if err != nil {
		s.cfg.Log.Warn("Check-in failed after token issuance",
			"booking_id", booking.ID,
			"hospital_id", booking.HospitalID,
			"token", token,
			"error", err,
		)
		switch {
		case errors.Is(err, errNotConfirmed), errors.Is(err, visitserrors.ErrDuplicateVisit):
			return nil, apperrors.Conflict("Booking was checked in or cancelled concurrently")
		case errors.Is(err, visitserrors.ErrDuplicateToken):
			return nil, s.duplicateTokenError(booking.HospitalID, token, err)
		default:
			return nil, apperrors.StorageUnavailable(err)
		}
	}

	s.cfg.Log.Info("Appointment checked in",
		"visit_id", visit.ID,
		"booking_id", booking.ID,
		"hospital_id", visit.HospitalID,
		"token", token,
	)
	s.publisher.Publish(ctx, events.VisitCheckedIn, visit.HospitalID, visit)
	return visit, nil
}

func (s *visitService) CheckInWalkIn(ctx context.Context, req *model.WalkInRequest) (*model.Visit, error) {
	req.HospitalID = sanitizer.NormalizeIdentifier(req.HospitalID)
	req.PatientID = sanitizer.NormalizeIdentifier(req.PatientID)
	req.DoctorID = sanitizer.NormalizeIdentifier(req.DoctorID)
	if err := s.validator.ValidateWalkIn(req); err != nil {
		return nil, validationError(err)
	}

	patient, err := s.findPatient(ctx, req.HospitalID, req.PatientID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Clock().UTC().Truncate(time.Millisecond)
	token, err := s.tokens.NextToken(ctx, req.HospitalID, now)
	if err != nil {
		return nil, err
	}

	visit := &model.Visit{
		HospitalID: req.HospitalID,
		PatientID:  patient.ID,
		DoctorID:   req.DoctorID,
		Token:      token,
		DayKey:     s.cfg.Calendar.DayKey(now),
		Source:     model.VisitSourceWalkIn,
		Status:     model.VisitWaiting,
		CreatedAt:  now,
	}
	if err := s.visits.CreateVisit(ctx, visit); err != nil {
		if errors.Is(err, visitserrors.ErrDuplicateToken) {
			return nil, s.duplicateTokenError(req.HospitalID, token, err)
		}
		s.cfg.Log.Error("Failed to record walk-in visit", "hospital_id", req.HospitalID, "token", token, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	s.cfg.Log.Info("Walk-in checked in", "visit_id", visit.ID, "hospital_id", visit.HospitalID, "token", token)
	s.publisher.Publish(ctx, events.VisitCheckedIn, visit.HospitalID, visit)
	return visit, nil
}

// ListToday returns the current business day's queue of a hospital in token order.
func (s *visitService) ListToday(ctx context.Context, hospitalID string, limit int, offset int64) ([]*model.Visit, int64, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" {
		return nil, 0, apperrors.InvalidInput("hospitalId is required")
	}
	day := s.cfg.Calendar.DayKey(s.cfg.Clock())

	visits, err := s.visits.ListByDay(ctx, hospitalID, day, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list visits", "hospital_id", hospitalID, "day", day, "error", err)
		return nil, 0, apperrors.StorageUnavailable(err)
	}
	total, err := s.visits.CountByDay(ctx, hospitalID, day)
	if err != nil {
		s.cfg.Log.Error("Failed to count visits", "hospital_id", hospitalID, "day", day, "error", err)
		return nil, 0, apperrors.StorageUnavailable(err)
	}
	return visits, total, nil
}

// FindByToken resolves a token called out at the counter to today's visit.
func (s *visitService) FindByToken(ctx context.Context, hospitalID string, token int64) (*model.Visit, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" {
		return nil, apperrors.InvalidInput("hospitalId is required")
	}
	if token <= 0 {
		return nil, apperrors.InvalidInput("token must be a positive number")
	}
	day := s.cfg.Calendar.DayKey(s.cfg.Clock())

	visit, err := s.visits.FindByToken(ctx, hospitalID, day, token)
	if err != nil {
		if errors.Is(err, visitserrors.ErrVisitNotFound) {
			return nil, apperrors.NotFound("Visit")
		}
		s.cfg.Log.Error("Failed to find visit by token", "hospital_id", hospitalID, "day", day, "token", token, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}
	return visit, nil
}

// duplicateTokenError means the counter handed out a number that is already
// on a visit, so the counter and the visits disagree.
func (s *visitService) duplicateTokenError(hospitalID string, token int64, err error) error {
	s.cfg.Log.Error("Token already used by another visit", "hospital_id", hospitalID, "token", token, "error", err)
	return apperrors.Conflict(fmt.Sprintf("Token %d is already assigned today", token))
}

func (s *visitService) findPatient(ctx context.Context, hospitalID, patientID string) (*model.Patient, error) {
	patient, err := s.patients.FindPatient(ctx, hospitalID, patientID)
	if err != nil {
		if errors.Is(err, visitserrors.ErrPatientNotFound) {
			return nil, apperrors.NotFoundWithID("Patient", patientID)
		}
		s.cfg.Log.Error("Failed to look up patient", "hospital_id", hospitalID, "patient_id", patientID, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}
	return patient, nil
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid input", verrs.Details())
	}
	return apperrors.Validation("Invalid input", map[string]any{"error": err.Error()})
}
