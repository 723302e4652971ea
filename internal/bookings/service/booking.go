package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "clinicq/internal/bookings/errors"
	"clinicq/internal/bookings/repository"
	"clinicq/internal/bookings/validator"
	"clinicq/internal/events"
	slotserrors "clinicq/internal/slots/errors"
	slotsservice "clinicq/internal/slots/service"
	"clinicq/pkg/config"
	"clinicq/pkg/db"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/model"
	"clinicq/pkg/sanitizer"
	"clinicq/pkg/validation"
)

// todayLimit caps the reception list of one hospital's bookings for a day.
const todayLimit = 1000

// LockManager is the reservation lock contract the orchestrator drives.
type LockManager interface {
	Acquire(ctx context.Context, slotID, sessionID string) (*model.LockGrant, error)
	Release(ctx context.Context, lockID string) (bool, error)
	Confirm(ctx context.Context, lockID string, now time.Time) (*model.SlotLock, error)
	Expire(ctx context.Context, lockID string, now time.Time) (bool, error)
}

// Ledger is the part of the capacity ledger used when bookings are
// committed and cancelled.
type Ledger interface {
	Commit(ctx context.Context, slotID string) error
	Release(ctx context.Context, slotID string) error
}

type SlotReader interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
}

type BookingService interface {
	ListSlots(ctx context.Context, hospitalID, date string) ([]model.SlotView, error)
	Lock(ctx context.Context, req *model.LockRequest) (*model.LockGrant, error)
	ReleaseLock(ctx context.Context, lockID string) error
	ConfirmBooking(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)

	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByLockID(ctx context.Context, lockID string) (*model.Booking, error)
	ListUpcoming(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Today(ctx context.Context, hospitalID, mode string) ([]*model.Booking, error)
	Analysis(ctx context.Context, fromDate string) ([]model.BookingCount, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	slots     slotsservice.SlotService
	slotRepo  SlotReader
	ledger    Ledger
	locks     LockManager
	tx        db.Transactor
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	slots slotsservice.SlotService,
	slotRepo SlotReader,
	ledger Ledger,
	locks LockManager,
	tx db.Transactor,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		slots:     slots,
		slotRepo:  slotRepo,
		ledger:    ledger,
		locks:     locks,
		tx:        tx,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookingService) now() time.Time {
	return s.cfg.Clock().UTC().Truncate(time.Millisecond)
}

func (s *bookingService) ListSlots(ctx context.Context, hospitalID, date string) ([]model.SlotView, error) {
	return s.slots.ListViews(ctx, hospitalID, date)
}

func (s *bookingService) Lock(ctx context.Context, req *model.LockRequest) (*model.LockGrant, error) {
	req.SlotID = sanitizer.NormalizeIdentifier(req.SlotID)
	req.SessionID = sanitizer.NormalizeIdentifier(req.SessionID)
	if err := s.validator.ValidateLock(req); err != nil {
		s.cfg.Log.Warn("Lock request validation failed", "slot_id", req.SlotID, "error", err)
		return nil, validationError(err)
	}

	grant, err := s.locks.Acquire(ctx, req.SlotID, req.SessionID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.SlotLocked, grant.SlotID, grant)
	return grant, nil
}

func (s *bookingService) ReleaseLock(ctx context.Context, lockID string) error {
	lockID = sanitizer.NormalizeIdentifier(lockID)
	if lockID == "" {
		return apperrors.InvalidInput("Lock ID cannot be empty")
	}

	released, err := s.locks.Release(ctx, lockID)
	if err != nil {
		return err
	}
	if released {
		s.publisher.Publish(ctx, events.SlotLockReleased, lockID, map[string]string{"lockId": lockID})
	}
	return nil
}

func (s *bookingService) sanitizeDetails(d *model.BookingDetails) {
	d.PatientName = sanitizer.NormalizeName(d.PatientName)
	if phone := sanitizer.NormalizePhone(d.PatientPhone, s.cfg.PhoneRegion); phone != "" {
		d.PatientPhone = phone
	}
	d.PatientID = sanitizer.NormalizeIdentifier(d.PatientID)
	d.DoctorID = sanitizer.NormalizeIdentifier(d.DoctorID)
	d.Mode = sanitizer.NormalizeMode(d.Mode)
	if d.Mode == "" {
		d.Mode = model.ModeOnline
	}
	d.PaymentReference = sanitizer.NormalizeIdentifier(d.PaymentReference)
}

// ConfirmBooking consumes the lock, commits its held unit and records the
// booking in one transaction. When any step fails nothing is applied and the
// lock keeps its previous state.
func (s *bookingService) ConfirmBooking(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
	req.LockID = sanitizer.NormalizeIdentifier(req.LockID)
	s.sanitizeDetails(&req.BookingDetails)
	if err := s.validator.ValidateConfirm(req); err != nil {
		s.cfg.Log.Warn("Confirm request validation failed", "lock_id", req.LockID, "error", err)
		return nil, validationError(err)
	}

	now := s.now()
	var booking *model.Booking
	err := s.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		lock, err := s.locks.Confirm(ctx, req.LockID, now)
		if err != nil {
			return err
		}

		if err := s.ledger.Commit(ctx, lock.SlotID); err != nil {
			if errors.Is(err, slotserrors.ErrFull) || errors.Is(err, slotserrors.ErrNotFound) {
				return apperrors.IntegrityConflict(fmt.Errorf("commit of lock %s on slot %s: %w", lock.ID, lock.SlotID, err))
			}
			return apperrors.StorageUnavailable(err)
		}

		slot, err := s.slotRepo.FindByID(ctx, lock.SlotID)
		if err != nil {
			return apperrors.StorageUnavailable(err)
		}

		booking = &model.Booking{
			HospitalID: slot.HospitalID,
			SlotID:     slot.ID,
			LockID:     lock.ID,
			Date:       slot.Date,
			SlotNumber: slot.SlotNumber,
			StartTime:  slot.StartTime,
			EndTime:    slot.EndTime,
			Status:     model.BookingConfirmed,
			Details:    req.BookingDetails,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, booking); err != nil {
			if errors.Is(err, bookingserrors.ErrDuplicateLock) {
				return apperrors.Conflict("Lock has already been confirmed")
			}
			return apperrors.StorageUnavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, s.confirmFailed(ctx, req.LockID, now, err)
	}

	s.cfg.Log.Info("Booking confirmed",
		"id", booking.ID,
		"lock_id", booking.LockID,
		"slot_id", booking.SlotID,
		"hospital_id", booking.HospitalID,
		"date", booking.Date,
	)
	s.publisher.Publish(ctx, events.BookingConfirmed, booking.ID, booking)
	return booking, nil
}

func (s *bookingService) confirmFailed(ctx context.Context, lockID string, now time.Time, err error) error {
	switch {
	case apperrors.HasCode(err, apperrors.CodeExpired):
		s.cfg.Log.Warn("Confirm rejected, lock expired", "lock_id", lockID)
		// the transaction rolled back, so the stale lock is reclaimed here
		if _, expireErr := s.locks.Expire(ctx, lockID, now); expireErr != nil {
			s.cfg.Log.Warn("Failed to expire lock after rejected confirm", "lock_id", lockID, "error", expireErr)
		}
	case apperrors.HasCode(err, apperrors.CodeIntegrityConflict):
		cause := apperrors.AsAppError(err).Err
		s.cfg.Log.Error("Booking integrity conflict, ledger rejected a confirmed lock",
			"lock_id", lockID,
			"error", cause,
		)
		s.publisher.Publish(ctx, events.BookingIntegrityConflict, lockID, map[string]string{
			"lockId": lockID,
			"reason": fmt.Sprint(cause),
		})
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		s.cfg.Log.Warn("Confirm rejected, lock not found or consumed", "lock_id", lockID)
	case apperrors.IsAppError(err):
		s.cfg.Log.Error("Failed to confirm booking", "lock_id", lockID, "error", err)
	default:
		s.cfg.Log.Error("Failed to confirm booking", "lock_id", lockID, "error", err)
		return apperrors.StorageUnavailable(err)
	}
	return err
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid input", verrs.Details())
	}
	return apperrors.Validation("Invalid input", map[string]any{"error": err.Error()})
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return booking, nil
}

func (s *bookingService) GetByLockID(ctx context.Context, lockID string) (*model.Booking, error) {
	booking, err := s.repo.FindByLockID(ctx, lockID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		return nil, apperrors.StorageUnavailable(err)
	}
	return booking, nil
}

func (s *bookingService) lookupError(id string, err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return apperrors.Internal("Failed to retrieve booking", err)
	}
}

// ListUpcoming pages through bookings from the start of the current business
// day unless the filter names another start or an exact date.
func (s *bookingService) ListUpcoming(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	filter.HospitalID = sanitizer.NormalizeIdentifier(filter.HospitalID)
	filter.Mode = sanitizer.NormalizeMode(filter.Mode)
	if filter.Date == "" && filter.FromDate == "" {
		filter.FromDate = s.cfg.Calendar.DayKey(s.cfg.Clock())
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Today(ctx context.Context, hospitalID, mode string) ([]*model.Booking, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" {
		return nil, apperrors.InvalidInput("hospitalId is required")
	}
	mode = sanitizer.NormalizeMode(mode)
	if mode != "" && mode != model.ModeOnline && mode != model.ModeOffline {
		return nil, apperrors.InvalidInput("mode must be one of [online offline]")
	}

	filter := model.BookingFilter{
		HospitalID: hospitalID,
		Date:       s.cfg.Calendar.DayKey(s.cfg.Clock()),
		Mode:       mode,
	}
	bookings, err := s.repo.Find(ctx, filter, todayLimit, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to list today's bookings", "hospital_id", hospitalID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) Analysis(ctx context.Context, fromDate string) ([]model.BookingCount, error) {
	if fromDate == "" {
		fromDate = s.cfg.Calendar.DayKey(s.cfg.Clock())
	}

	counts, err := s.repo.CountByDateAndHospital(ctx, fromDate)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate bookings", "from", fromDate, "error", err)
		return nil, apperrors.Internal("Failed to analyse bookings", err)
	}
	return counts, nil
}

// Cancel frees the booking's committed unit. The original lock stays
// confirmed; a new booking needs a new lock.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingConfirmed {
		return nil, apperrors.Conflict(fmt.Sprintf("Booking is %s and cannot be cancelled", booking.Status))
	}

	now := s.now()
	err = s.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.TransitionStatus(ctx, id, model.BookingConfirmed, model.BookingCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return bookingserrors.ErrStatusChanged
		}
		return s.ledger.Release(ctx, booking.SlotID)
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.Conflict("Booking status changed, please reload")
		}
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	booking.Status = model.BookingCancelled
	booking.UpdatedAt = now
	booking.CancelledAt = &now

	s.cfg.Log.Info("Booking cancelled", "id", id, "slot_id", booking.SlotID)
	s.publisher.Publish(ctx, events.BookingCancelled, booking.ID, booking)
	return booking, nil
}
