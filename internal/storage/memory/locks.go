package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	lockserrors "clinicq/internal/locks/errors"
	"clinicq/internal/locks/repository"
	"clinicq/pkg/model"
)

type LockRepository struct {
	s *Store
}

var _ repository.LockRepository = (*LockRepository)(nil)

func (r *LockRepository) Create(ctx context.Context, lock *model.SlotLock) error {
	return r.s.write(ctx, func(j *journal) error {
		if _, exists := r.s.locks[lock.ID]; exists {
			return fmt.Errorf("%w: %s", lockserrors.ErrDuplicate, lock.ID)
		}
		stored := *lock
		r.s.locks[lock.ID] = &stored
		j.record(func() { delete(r.s.locks, stored.ID) })
		return nil
	})
}

func (r *LockRepository) FindByID(ctx context.Context, id string) (*model.SlotLock, error) {
	var out *model.SlotLock
	err := r.s.read(ctx, func() error {
		lock, ok := r.s.locks[id]
		if !ok {
			return fmt.Errorf("%w: %s", lockserrors.ErrNotFound, id)
		}
		copied := *lock
		out = &copied
		return nil
	})
	return out, err
}

func (r *LockRepository) MarkReleased(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx, id, func(l *model.SlotLock) bool {
		if l.State != model.LockActive {
			return false
		}
		l.State = model.LockReleased
		l.ReleasedAt = &at
		return true
	})
}

func (r *LockRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(ctx, id, func(l *model.SlotLock) bool {
		if !l.Stale(now) {
			return false
		}
		l.State = model.LockExpired
		l.ExpiredAt = &now
		return true
	})
}

func (r *LockRepository) MarkConfirmed(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(ctx, id, func(l *model.SlotLock) bool {
		if !l.Live(now) {
			return false
		}
		l.State = model.LockConfirmed
		l.ConfirmedAt = &now
		return true
	})
}

func (r *LockRepository) transition(ctx context.Context, id string, apply func(*model.SlotLock) bool) (bool, error) {
	matched := false
	err := r.s.write(ctx, func(j *journal) error {
		lock, ok := r.s.locks[id]
		if !ok {
			return nil
		}
		before := *lock
		if !apply(lock) {
			return nil
		}
		matched = true
		j.record(func() { *lock = before })
		return nil
	})
	return matched, err
}

func (r *LockRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]*model.SlotLock, error) {
	stale, err := r.collect(ctx, func(l *model.SlotLock) bool { return l.Stale(now) })
	if err != nil {
		return nil, err
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ExpiresAt.Before(stale[j].ExpiresAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (r *LockRepository) FindStaleBySlot(ctx context.Context, slotID string, now time.Time) ([]*model.SlotLock, error) {
	return r.collect(ctx, func(l *model.SlotLock) bool { return l.SlotID == slotID && l.Stale(now) })
}

func (r *LockRepository) CountActiveBySlot(ctx context.Context, slotIDs []string, now time.Time) (map[string]int, error) {
	wanted := make(map[string]bool, len(slotIDs))
	for _, id := range slotIDs {
		wanted[id] = true
	}
	live, err := r.collect(ctx, func(l *model.SlotLock) bool { return wanted[l.SlotID] && l.Live(now) })
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(slotIDs))
	for _, l := range live {
		counts[l.SlotID]++
	}
	return counts, nil
}

func (r *LockRepository) collect(ctx context.Context, match func(*model.SlotLock) bool) ([]*model.SlotLock, error) {
	out := make([]*model.SlotLock, 0)
	err := r.s.read(ctx, func() error {
		for _, lock := range r.s.locks {
			if match(lock) {
				copied := *lock
				out = append(out, &copied)
			}
		}
		return nil
	})
	return out, err
}
