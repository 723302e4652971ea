package memory

import (
	"context"
	"fmt"
	"sort"

	slotserrors "clinicq/internal/slots/errors"
	"clinicq/internal/slots/repository"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SlotRepository struct {
	s *Store
}

var _ repository.SlotRepository = (*SlotRepository)(nil)

func slotKey(hospitalID, date string, number int) string {
	return fmt.Sprintf("%s|%s|%d", hospitalID, date, number)
}

func checkSlotID(id string) error {
	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return nil
}

func (r *SlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) (int, error) {
	created := 0
	err := r.s.write(ctx, func(j *journal) error {
		ts := now()
		for _, slot := range slots {
			key := slotKey(slot.HospitalID, slot.Date, slot.SlotNumber)
			if _, exists := r.s.slotKeys[key]; exists {
				continue
			}

			slot.ID = primitive.NewObjectID().Hex()
			slot.BookedCount = 0
			slot.HeldCount = 0
			slot.CreatedAt = ts
			slot.UpdatedAt = ts

			stored := *slot
			r.s.slots[stored.ID] = &stored
			r.s.slotKeys[key] = stored.ID
			j.record(func() {
				delete(r.s.slots, stored.ID)
				delete(r.s.slotKeys, key)
			})
			created++
		}
		return nil
	})
	return created, err
}

func (r *SlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if err := checkSlotID(id); err != nil {
		return nil, err
	}

	var out *model.Slot
	err := r.s.read(ctx, func() error {
		slot, ok := r.s.slots[id]
		if !ok {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		copied := *slot
		out = &copied
		return nil
	})
	return out, err
}

func (r *SlotRepository) FindByHospitalAndDates(ctx context.Context, hospitalID string, dates []string) ([]*model.Slot, error) {
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}
	return r.collect(ctx, func(slot *model.Slot) bool {
		return slot.HospitalID == hospitalID && wanted[slot.Date]
	})
}

func (r *SlotRepository) FindAll(ctx context.Context, filter repository.SlotFilter, limit int, offset int64) ([]*model.Slot, error) {
	slots, err := r.collect(ctx, matchSlotFilter(filter))
	if err != nil {
		return nil, err
	}
	return page(slots, limit, offset), nil
}

func (r *SlotRepository) Count(ctx context.Context, filter repository.SlotFilter) (int64, error) {
	slots, err := r.collect(ctx, matchSlotFilter(filter))
	return int64(len(slots)), err
}

func matchSlotFilter(f repository.SlotFilter) func(*model.Slot) bool {
	return func(slot *model.Slot) bool {
		return (f.HospitalID == "" || slot.HospitalID == f.HospitalID) &&
			(f.Date == "" || slot.Date == f.Date)
	}
}

// collect returns copies of matching slots ordered by date, hospital and number.
func (r *SlotRepository) collect(ctx context.Context, match func(*model.Slot) bool) ([]*model.Slot, error) {
	out := make([]*model.Slot, 0)
	err := r.s.read(ctx, func() error {
		for _, slot := range r.s.slots {
			if match(slot) {
				copied := *slot
				out = append(out, &copied)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.HospitalID != b.HospitalID {
			return a.HospitalID < b.HospitalID
		}
		return a.SlotNumber < b.SlotNumber
	})
	return out, err
}

func (r *SlotRepository) DistinctDates(ctx context.Context, hospitalID, fromDate, toDate string, limit int) ([]string, error) {
	seen := make(map[string]bool)
	err := r.s.read(ctx, func() error {
		for _, slot := range r.s.slots {
			if slot.HospitalID == hospitalID && slot.Date >= fromDate && slot.Date < toDate {
				seen[slot.Date] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (r *SlotRepository) Hold(ctx context.Context, id string) error {
	return r.adjust(ctx, id, func(s *model.Slot) error {
		if s.BookedCount+s.HeldCount >= s.MaxCapacity {
			return slotserrors.ErrFull
		}
		s.HeldCount++
		return nil
	})
}

func (r *SlotRepository) Unhold(ctx context.Context, id string) error {
	return r.adjust(ctx, id, func(s *model.Slot) error {
		if s.HeldCount <= 0 {
			return slotserrors.ErrNoHold
		}
		s.HeldCount--
		return nil
	})
}

func (r *SlotRepository) Commit(ctx context.Context, id string) error {
	return r.adjust(ctx, id, func(s *model.Slot) error {
		if s.HeldCount < 1 || s.BookedCount >= s.MaxCapacity {
			return slotserrors.ErrFull
		}
		s.HeldCount--
		s.BookedCount++
		return nil
	})
}

func (r *SlotRepository) Release(ctx context.Context, id string) error {
	return r.adjust(ctx, id, func(s *model.Slot) error {
		if s.BookedCount > 0 {
			s.BookedCount--
		}
		return nil
	})
}

// adjust applies change to the stored slot, or leaves it untouched when
// change fails.
func (r *SlotRepository) adjust(ctx context.Context, id string, change func(*model.Slot) error) error {
	if err := checkSlotID(id); err != nil {
		return err
	}
	return r.s.write(ctx, func(j *journal) error {
		slot, ok := r.s.slots[id]
		if !ok {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}

		before := *slot
		if err := change(slot); err != nil {
			*slot = before
			return fmt.Errorf("%w: %s", err, id)
		}
		slot.UpdatedAt = now()
		j.record(func() { *slot = before })
		return nil
	})
}

func (r *SlotRepository) DeleteIfUnused(ctx context.Context, id string) error {
	if err := checkSlotID(id); err != nil {
		return err
	}
	return r.s.write(ctx, func(j *journal) error {
		slot, ok := r.s.slots[id]
		if !ok {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		if !slot.Deletable() {
			return fmt.Errorf("%w: %s", slotserrors.ErrInUse, id)
		}
		r.s.deleteSlot(j, slot)
		return nil
	})
}

func (r *SlotRepository) DeleteUnusedByDate(ctx context.Context, hospitalID, date string) (int64, error) {
	var deleted int64
	err := r.s.write(ctx, func(j *journal) error {
		for _, slot := range r.s.slots {
			if slot.HospitalID == hospitalID && slot.Date == date && slot.Deletable() {
				r.s.deleteSlot(j, slot)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

func (s *Store) deleteSlot(j *journal, slot *model.Slot) {
	key := slotKey(slot.HospitalID, slot.Date, slot.SlotNumber)
	delete(s.slots, slot.ID)
	delete(s.slotKeys, key)
	j.record(func() {
		s.slots[slot.ID] = slot
		s.slotKeys[key] = slot.ID
	})
}

func page[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
