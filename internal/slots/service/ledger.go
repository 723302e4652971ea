package service

import (
	"context"
	"errors"

	slotserrors "clinicq/internal/slots/errors"
	"clinicq/internal/slots/repository"
	"clinicq/pkg/logger"
	"clinicq/pkg/model"
)

// Ledger is the capacity ledger of every slot. Each mutation is one conditional
// update on the slot document: held_count tracks active locks, booked_count
// tracks committed bookings, and booked+held never exceeds max_capacity.
//
// Errors are the sentinels from internal/slots/errors so callers can map them
// inside their own transactions.
type Ledger struct {
	repo repository.SlotRepository
	log  *logger.Logger
}

func NewLedger(repo repository.SlotRepository, log *logger.Logger) *Ledger {
	return &Ledger{repo: repo, log: log.Component("ledger")}
}

func (l *Ledger) Availability(ctx context.Context, slotID string) (*model.Availability, error) {
	slot, err := l.repo.FindByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	return &model.Availability{
		SlotID:      slot.ID,
		HospitalID:  slot.HospitalID,
		Date:        slot.Date,
		MaxCapacity: slot.MaxCapacity,
		Committed:   slot.BookedCount,
		ActiveLocks: slot.HeldCount,
	}, nil
}

// Hold reserves one unit for a lock. Fails with ErrFull when none remains.
func (l *Ledger) Hold(ctx context.Context, slotID string) error {
	err := l.repo.Hold(ctx, slotID)
	if err != nil && !errors.Is(err, slotserrors.ErrFull) {
		l.log.Error("Failed to hold slot capacity", "slot_id", slotID, "error", err)
	}
	return err
}

// Unhold gives back a unit held by a lock that was released or expired.
func (l *Ledger) Unhold(ctx context.Context, slotID string) error {
	err := l.repo.Unhold(ctx, slotID)
	if errors.Is(err, slotserrors.ErrNoHold) {
		// A hold is only ever returned after its lock left the active state,
		// so a missing hold means the counters drifted.
		l.log.Error("Slot hold counter already at zero", "slot_id", slotID)
	}
	return err
}

// Commit turns a held unit into a booked unit. ErrFull here means the ledger
// and the lock table disagree.
func (l *Ledger) Commit(ctx context.Context, slotID string) error {
	return l.repo.Commit(ctx, slotID)
}

// Release frees a booked unit, floored at zero.
func (l *Ledger) Release(ctx context.Context, slotID string) error {
	return l.repo.Release(ctx, slotID)
}
