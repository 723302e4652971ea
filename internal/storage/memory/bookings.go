package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	bookingserrors "clinicq/internal/bookings/errors"
	"clinicq/internal/bookings/repository"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository struct {
	s *Store
}

var _ repository.BookingRepository = (*BookingRepository)(nil)

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.s.write(ctx, func(j *journal) error {
		if _, exists := r.s.bookingByLock[booking.LockID]; exists {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateLock, booking.LockID)
		}

		booking.ID = primitive.NewObjectID().Hex()
		stored := *booking
		r.s.bookings[stored.ID] = &stored
		r.s.bookingByLock[stored.LockID] = stored.ID
		j.record(func() {
			delete(r.s.bookings, stored.ID)
			delete(r.s.bookingByLock, stored.LockID)
		})
		return nil
	})
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var out *model.Booking
	err := r.s.read(ctx, func() error {
		booking, ok := r.s.bookings[id]
		if !ok {
			return bookingserrors.ErrNotFound
		}
		copied := *booking
		out = &copied
		return nil
	})
	return out, err
}

func (r *BookingRepository) FindByLockID(ctx context.Context, lockID string) (*model.Booking, error) {
	var out *model.Booking
	err := r.s.read(ctx, func() error {
		id, ok := r.s.bookingByLock[lockID]
		if !ok {
			return bookingserrors.ErrNotFound
		}
		copied := *r.s.bookings[id]
		out = &copied
		return nil
	})
	return out, err
}

func (r *BookingRepository) TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	if !primitive.IsValidObjectID(id) {
		return false, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	matched := false
	err := r.s.write(ctx, func(j *journal) error {
		booking, ok := r.s.bookings[id]
		if !ok || booking.Status != from {
			return nil
		}

		before := *booking
		booking.Status = to
		booking.UpdatedAt = at
		switch to {
		case model.BookingCheckedIn:
			booking.CheckedInAt = &at
		case model.BookingCancelled:
			booking.CancelledAt = &at
		}
		matched = true
		j.record(func() { *booking = before })
		return nil
	})
	return matched, err
}

func (r *BookingRepository) Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	bookings, err := r.collect(ctx, filter)
	if err != nil {
		return nil, err
	}
	return page(bookings, limit, offset), nil
}

func (r *BookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	bookings, err := r.collect(ctx, filter)
	return int64(len(bookings)), err
}

func (r *BookingRepository) CountByDateAndHospital(ctx context.Context, fromDate string) ([]model.BookingCount, error) {
	type key struct{ date, hospital string }
	counts := make(map[key]int64)
	err := r.s.read(ctx, func() error {
		for _, b := range r.s.bookings {
			if b.Date >= fromDate && b.Status != model.BookingCancelled {
				counts[key{b.Date, b.HospitalID}]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.BookingCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.BookingCount{Date: k.date, HospitalID: k.hospital, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].HospitalID < out[j].HospitalID
	})
	return out, nil
}

func (r *BookingRepository) collect(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	out := make([]*model.Booking, 0)
	err := r.s.read(ctx, func() error {
		for _, b := range r.s.bookings {
			if matchBooking(b, f) {
				copied := *b
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
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, err
}

func matchBooking(b *model.Booking, f model.BookingFilter) bool {
	if f.HospitalID != "" && b.HospitalID != f.HospitalID {
		return false
	}
	switch {
	case f.Date != "" && b.Date != f.Date:
		return false
	case f.Date == "" && f.FromDate != "" && b.Date < f.FromDate:
		return false
	}
	if f.Mode != "" && b.Details.Mode != f.Mode {
		return false
	}
	return f.Status == "" || b.Status == f.Status
}
