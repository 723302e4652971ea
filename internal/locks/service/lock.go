package service

import (
	"context"
	"errors"
	"time"

	lockserrors "clinicq/internal/locks/errors"
	"clinicq/internal/locks/repository"
	slotserrors "clinicq/internal/slots/errors"
	"clinicq/pkg/config"
	"clinicq/pkg/db"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/model"
	"clinicq/pkg/sanitizer"

	"github.com/google/uuid"
)

// Ledger is the part of the slot capacity ledger the lock manager drives.
type Ledger interface {
	Availability(ctx context.Context, slotID string) (*model.Availability, error)
	Hold(ctx context.Context, slotID string) error
	Unhold(ctx context.Context, slotID string) error
}

// LockManager grants, releases, confirms and expires reservation locks.
// Every state change of a lock and the matching ledger update commit together.
type LockManager struct {
	repo   repository.LockRepository
	ledger Ledger
	tx     db.Transactor
	cfg    *config.Config
}

func NewLockManager(repo repository.LockRepository, ledger Ledger, tx db.Transactor, cfg *config.Config) *LockManager {
	return &LockManager{
		repo:   repo,
		ledger: ledger,
		tx:     tx,
		cfg:    cfg,
	}
}

func (m *LockManager) now() time.Time {
	return m.cfg.Clock().UTC().Truncate(time.Millisecond)
}

// Acquire holds one unit of the slot for the session until now+LockTTL.
func (m *LockManager) Acquire(ctx context.Context, slotID, sessionID string) (*model.LockGrant, error) {
	slotID = sanitizer.NormalizeIdentifier(slotID)
	now := m.now()

	avail, err := m.ledger.Availability(ctx, slotID)
	if err != nil {
		return nil, m.slotError(slotID, err)
	}

	// Capacity held by this slot's own stale locks is reclaimed before the
	// hold is attempted, so expiry never depends on the sweeper having run.
	if err := m.expireStaleForSlot(ctx, slotID, now); err != nil {
		return nil, err
	}

	lock := &model.SlotLock{
		ID:         uuid.NewString(),
		SlotID:     slotID,
		HospitalID: avail.HospitalID,
		SessionID:  sessionID,
		State:      model.LockActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.cfg.LockTTL),
	}

	err = m.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := m.ledger.Hold(ctx, slotID); err != nil {
			return err
		}
		return m.repo.Create(ctx, lock)
	})
	if err != nil {
		if errors.Is(err, slotserrors.ErrFull) {
			m.cfg.Log.Warn("Lock rejected, slot is full", "slot_id", slotID, "session_id", sessionID)
			return nil, apperrors.Full(slotID)
		}
		return nil, m.slotError(slotID, err)
	}

	m.cfg.Log.Info("Lock acquired",
		"lock_id", lock.ID,
		"slot_id", slotID,
		"session_id", sessionID,
		"expires_at", lock.ExpiresAt,
	)
	return &model.LockGrant{LockID: lock.ID, SlotID: slotID, ExpiresAt: lock.ExpiresAt}, nil
}

func (m *LockManager) expireStaleForSlot(ctx context.Context, slotID string, now time.Time) error {
	stale, err := m.repo.FindStaleBySlot(ctx, slotID, now)
	if err != nil {
		m.cfg.Log.Error("Failed to look up stale locks", "slot_id", slotID, "error", err)
		return apperrors.StorageUnavailable(err)
	}
	for _, lock := range stale {
		if _, err := m.expire(ctx, lock, now); err != nil {
			return apperrors.StorageUnavailable(err)
		}
	}
	return nil
}

func (m *LockManager) slotError(slotID string, err error) error {
	switch {
	case errors.Is(err, slotserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid slot ID format")
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Slot", slotID)
	case apperrors.IsAppError(err):
		return err
	default:
		m.cfg.Log.Error("Lock storage failure", "slot_id", slotID, "error", err)
		return apperrors.StorageUnavailable(err)
	}
}

// Release marks an active lock released and returns its hold. Unknown,
// released, confirmed and expired locks are a successful no-op; the boolean
// reports whether this call released the lock.
func (m *LockManager) Release(ctx context.Context, lockID string) (bool, error) {
	lock, err := m.repo.FindByID(ctx, lockID)
	if err != nil {
		if errors.Is(err, lockserrors.ErrNotFound) {
			m.cfg.Log.Info("Release of unknown lock ignored", "lock_id", lockID)
			return false, nil
		}
		m.cfg.Log.Error("Failed to load lock for release", "lock_id", lockID, "error", err)
		return false, apperrors.StorageUnavailable(err)
	}
	if lock.State != model.LockActive {
		return false, nil
	}

	released := false
	err = m.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := m.repo.MarkReleased(ctx, lockID, m.now())
		if err != nil || !ok {
			return err
		}
		released = true
		return m.unhold(ctx, lock.SlotID)
	})
	if err != nil {
		m.cfg.Log.Error("Failed to release lock", "lock_id", lockID, "error", err)
		return false, apperrors.StorageUnavailable(err)
	}

	if released {
		m.cfg.Log.Info("Lock released", "lock_id", lockID, "slot_id", lock.SlotID)
	}
	return released, nil
}

// unhold tolerates a hold counter already at zero so a drifted counter cannot
// wedge a lock in the active state.
func (m *LockManager) unhold(ctx context.Context, slotID string) error {
	if err := m.ledger.Unhold(ctx, slotID); err != nil && !errors.Is(err, slotserrors.ErrNoHold) {
		return err
	}
	return nil
}

// Expire moves a lock past its TTL to expired and returns its hold. It
// reports false when the lock was already out of the active state or is
// still live at now.
func (m *LockManager) Expire(ctx context.Context, lockID string, now time.Time) (bool, error) {
	lock, err := m.repo.FindByID(ctx, lockID)
	if err != nil {
		if errors.Is(err, lockserrors.ErrNotFound) {
			return false, apperrors.NotFoundWithID("Lock", lockID)
		}
		return false, apperrors.StorageUnavailable(err)
	}
	expired, err := m.expire(ctx, lock, now)
	if err != nil {
		return false, apperrors.StorageUnavailable(err)
	}
	return expired, nil
}

func (m *LockManager) expire(ctx context.Context, lock *model.SlotLock, now time.Time) (bool, error) {
	expired := false
	err := m.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := m.repo.MarkExpired(ctx, lock.ID, now)
		if err != nil || !ok {
			return err
		}
		expired = true
		return m.unhold(ctx, lock.SlotID)
	})
	if err != nil {
		m.cfg.Log.Error("Failed to expire lock", "lock_id", lock.ID, "slot_id", lock.SlotID, "error", err)
		return false, err
	}
	if expired {
		m.cfg.Log.Info("Lock expired", "lock_id", lock.ID, "slot_id", lock.SlotID, "expires_at", lock.ExpiresAt)
	}
	return expired, nil
}

// ExpireSweep expires every lock whose TTL elapsed at now, in batches of
// SweepBatchSize. A lock that fails to expire is left for the next sweep.
func (m *LockManager) ExpireSweep(ctx context.Context, now time.Time) (*model.SweepResult, error) {
	result := &model.SweepResult{At: now}

	for {
		stale, err := m.repo.FindStale(ctx, now, m.cfg.SweepBatchSize)
		if err != nil {
			m.cfg.Log.Error("Failed to query stale locks", "error", err)
			return result, apperrors.StorageUnavailable(err)
		}

		progressed := 0
		for _, lock := range stale {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			expired, err := m.expire(ctx, lock, now)
			if err != nil {
				continue
			}
			progressed++
			if expired {
				result.Expired++
			}
		}

		if len(stale) < m.cfg.SweepBatchSize || progressed == 0 {
			break
		}
	}

	if result.Expired > 0 {
		m.cfg.Log.Info("Lock sweep finished", "expired", result.Expired, "at", now)
	}
	return result, nil
}

// Confirm consumes a live lock. It must run inside the caller's transaction
// together with the ledger commit. A lock past its TTL is rejected as expired
// even when no sweep has marked it yet.
func (m *LockManager) Confirm(ctx context.Context, lockID string, now time.Time) (*model.SlotLock, error) {
	lock, err := m.repo.FindByID(ctx, lockID)
	if err != nil {
		if errors.Is(err, lockserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Lock", lockID)
		}
		return nil, apperrors.StorageUnavailable(err)
	}

	switch {
	case lock.State == model.LockReleased, lock.State == model.LockConfirmed:
		return nil, apperrors.NotFoundWithID("Lock", lockID).
			WithDetails(map[string]any{"lock_id": lockID, "state": string(lock.State)})
	case lock.State == model.LockExpired, lock.Stale(now):
		return nil, apperrors.Expired(lockID)
	}

	ok, err := m.repo.MarkConfirmed(ctx, lockID, now)
	if err != nil {
		return nil, apperrors.StorageUnavailable(err)
	}
	if !ok {
		// lost a race with release or expiry between the read and the update
		if !now.Before(lock.ExpiresAt) {
			return nil, apperrors.Expired(lockID)
		}
		return nil, apperrors.NotFoundWithID("Lock", lockID)
	}

	lock.State = model.LockConfirmed
	lock.ConfirmedAt = &now
	return lock, nil
}
