package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	slotserrors "clinicq/internal/slots/errors"
	"clinicq/internal/slots/repository"
	"clinicq/internal/slots/validator"
	"clinicq/pkg/config"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/locale"
	"clinicq/pkg/model"
	"clinicq/pkg/sanitizer"
)

// ActiveLockCounter counts locks that still hold capacity at now, per slot.
type ActiveLockCounter interface {
	CountActiveBySlot(ctx context.Context, slotIDs []string, now time.Time) (map[string]int, error)
}

type SlotService interface {
	ListViews(ctx context.Context, hospitalID, date string) ([]model.SlotView, error)
	Window(ctx context.Context, hospitalID, from string, days int) (*model.SlotWindow, error)

	Generate(ctx context.Context, req *model.SlotGenerationRequest) (*model.SlotGenerationResult, error)
	GetAll(ctx context.Context, filter repository.SlotFilter, limit int, offset int64) ([]*model.Slot, int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByDate(ctx context.Context, hospitalID, date string) (int64, error)
}

type slotService struct {
	repo      repository.SlotRepository
	locks     ActiveLockCounter
	validator *validator.SlotValidator
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	locks ActiveLockCounter,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		locks:     locks,
		validator: validator,
		cfg:       cfg,
	}
}

// ListViews returns every slot of the day, full ones included, with
// available = max - committed - live locks, floored at zero.
func (s *slotService) ListViews(ctx context.Context, hospitalID, date string) ([]model.SlotView, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" {
		return nil, apperrors.InvalidInput("hospitalId is required")
	}
	if date == "" {
		date = s.cfg.Calendar.DayKey(s.cfg.Clock())
	}
	if !locale.ValidDay(date) {
		return nil, apperrors.InvalidInput("date must be in YYYY-MM-DD format")
	}

	slots, err := s.repo.FindByHospitalAndDates(ctx, hospitalID, []string{date})
	if err != nil {
		s.cfg.Log.Error("Failed to list slots", "hospital_id", hospitalID, "date", date, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	held, err := s.liveLocks(ctx, slots)
	if err != nil {
		return nil, err
	}

	views := make([]model.SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, model.SlotView{
			ID:             slot.ID,
			Date:           slot.Date,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			SlotNumber:     slot.SlotNumber,
			AvailableCount: available(slot, held[slot.ID]),
			MaxCapacity:    slot.MaxCapacity,
		})
	}
	return views, nil
}

func available(slot *model.Slot, liveLocks int) int {
	return model.Availability{
		MaxCapacity: slot.MaxCapacity,
		Committed:   slot.BookedCount,
		ActiveLocks: liveLocks,
	}.Remaining()
}

func (s *slotService) liveLocks(ctx context.Context, slots []*model.Slot) (map[string]int, error) {
	if len(slots) == 0 {
		return map[string]int{}, nil
	}
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.ID)
	}
	held, err := s.locks.CountActiveBySlot(ctx, ids, s.cfg.Clock())
	if err != nil {
		s.cfg.Log.Error("Failed to count active locks", "slots", len(ids), "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}
	return held, nil
}

// Window scans forward from `from` for days that have at least one slot row,
// stopping at `days` hits or after WindowScanCapDays calendar days.
func (s *slotService) Window(ctx context.Context, hospitalID, from string, days int) (*model.SlotWindow, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" {
		return nil, apperrors.InvalidInput("hospitalId is required")
	}
	if from == "" {
		from = s.cfg.Calendar.DayKey(s.cfg.Clock())
	}
	if !locale.ValidDay(from) {
		return nil, apperrors.InvalidInput("from must be in YYYY-MM-DD format")
	}
	switch {
	case days <= 0:
		days = s.cfg.WindowDefaultDays
	case days > s.cfg.WindowMaxDays:
		days = s.cfg.WindowMaxDays
	}

	until, err := s.cfg.Calendar.AddDays(from, s.cfg.WindowScanCapDays)
	if err != nil {
		return nil, apperrors.InvalidInput("from must be in YYYY-MM-DD format")
	}

	dates, err := s.repo.DistinctDates(ctx, hospitalID, from, until, days)
	if err != nil {
		s.cfg.Log.Error("Failed to scan slot window", "hospital_id", hospitalID, "from", from, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	window := &model.SlotWindow{
		HospitalID: hospitalID,
		From:       from,
		Days:       make([]model.DaySummary, 0, len(dates)),
		HasMore:    len(dates) == days,
	}
	if len(dates) == 0 {
		return window, nil
	}

	slots, err := s.repo.FindByHospitalAndDates(ctx, hospitalID, dates)
	if err != nil {
		s.cfg.Log.Error("Failed to load window slots", "hospital_id", hospitalID, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}
	held, err := s.liveLocks(ctx, slots)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*model.DaySummary, len(dates))
	for _, date := range dates {
		window.Days = append(window.Days, model.DaySummary{Date: date})
	}
	for i := range window.Days {
		byDate[window.Days[i].Date] = &window.Days[i]
	}
	for _, slot := range slots {
		if day, ok := byDate[slot.Date]; ok {
			day.SlotCount++
			day.AvailableCount += available(slot, held[slot.ID])
		}
	}

	return window, nil
}

// Generate creates numbered slots for every day in [FromDate, ToDate].
// Slots that already exist are counted as skipped.
func (s *slotService) Generate(ctx context.Context, req *model.SlotGenerationRequest) (*model.SlotGenerationResult, error) {
	req.HospitalID = sanitizer.NormalizeIdentifier(req.HospitalID)
	if err := s.validator.ValidateGeneration(req); err != nil {
		s.cfg.Log.Warn("Slot generation validation failed", "hospital_id", req.HospitalID, "error", err)
		return nil, validationError(err)
	}

	slots, dayCount, err := s.validator.Plan(req)
	if err != nil {
		return nil, validationError(err)
	}

	created, err := s.repo.CreateMany(ctx, slots)
	if err != nil {
		s.cfg.Log.Error("Failed to generate slots", "hospital_id", req.HospitalID, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	result := &model.SlotGenerationResult{
		HospitalID: req.HospitalID,
		Days:       dayCount,
		Created:    created,
		Skipped:    len(slots) - created,
	}
	s.cfg.Log.Info("Slots generated",
		"hospital_id", req.HospitalID,
		"from", req.FromDate,
		"to", req.ToDate,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

func validationError(err error) error {
	var verrs interface{ Details() map[string]any }
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid input", verrs.Details())
	}
	return apperrors.Validation("Invalid input", map[string]any{"error": err.Error()})
}

func (s *slotService) GetAll(ctx context.Context, filter repository.SlotFilter, limit int, offset int64) ([]*model.Slot, int64, error) {
	if filter.Date != "" && !locale.ValidDay(filter.Date) {
		return nil, 0, apperrors.InvalidInput("date must be in YYYY-MM-DD format")
	}

	var count int64
	var slots []*model.Slot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.repo.FindAll(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		s.cfg.Log.Error("Failed to list slots", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve slots", err)
	}

	return slots, count, nil
}

func (s *slotService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteIfUnused(ctx, id); err != nil {
		switch {
		case errors.Is(err, slotserrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid slot ID format")
		case errors.Is(err, slotserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Slot", id)
		case errors.Is(err, slotserrors.ErrInUse):
			return apperrors.Conflict("Slot has booked or held capacity and cannot be deleted")
		default:
			s.cfg.Log.Error("Failed to delete slot", "id", id, "error", err)
			return apperrors.Internal("Failed to delete slot", err)
		}
	}

	s.cfg.Log.Info("Slot deleted", "id", id)
	return nil
}

func (s *slotService) DeleteByDate(ctx context.Context, hospitalID, date string) (int64, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" || !locale.ValidDay(date) {
		return 0, apperrors.InvalidInput("hospitalId and a YYYY-MM-DD date are required")
	}

	deleted, err := s.repo.DeleteUnusedByDate(ctx, hospitalID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to delete slots by date", "hospital_id", hospitalID, "date", date, "error", err)
		return 0, apperrors.Internal("Failed to delete slots", fmt.Errorf("delete by date: %w", err))
	}

	s.cfg.Log.Info("Unused slots deleted", "hospital_id", hospitalID, "date", date, "deleted", deleted)
	return deleted, nil
}
