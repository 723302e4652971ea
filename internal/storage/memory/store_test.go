package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "clinicq/internal/bookings/errors"
	slotserrors "clinicq/internal/slots/errors"
	"clinicq/internal/slots/repository"
	visitserrors "clinicq/internal/visits/errors"
	"clinicq/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSlot(t *testing.T, s *Store, capacity int) *model.Slot {
	t.Helper()
	slot := &model.Slot{
		HospitalID:  "h1",
		Date:        "2026-03-02",
		SlotNumber:  1,
		StartTime:   "09:00",
		EndTime:     "09:15",
		MaxCapacity: capacity,
	}
	created, err := s.Slots().CreateMany(context.Background(), []*model.Slot{slot})
	require.NoError(t, err)
	require.Equal(t, 1, created)
	return slot
}

func TestCreateManySkipsExistingSlots(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedSlot(t, s, 2)

	again := []*model.Slot{
		{HospitalID: "h1", Date: "2026-03-02", SlotNumber: 1, MaxCapacity: 2},
		{HospitalID: "h1", Date: "2026-03-02", SlotNumber: 2, MaxCapacity: 2},
	}
	created, err := s.Slots().CreateMany(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	count, err := s.Slots().Count(ctx, slotFilter("h1", "2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLedgerCounters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	slot := seedSlot(t, s, 1)
	slots := s.Slots()

	require.NoError(t, slots.Hold(ctx, slot.ID))
	assert.ErrorIs(t, slots.Hold(ctx, slot.ID), slotserrors.ErrFull)

	require.NoError(t, slots.Commit(ctx, slot.ID))
	assert.ErrorIs(t, slots.Commit(ctx, slot.ID), slotserrors.ErrFull, "commit without a hold")
	assert.ErrorIs(t, slots.Hold(ctx, slot.ID), slotserrors.ErrFull, "booked unit still counts")

	require.NoError(t, slots.Release(ctx, slot.ID))
	require.NoError(t, slots.Release(ctx, slot.ID), "release at zero is a no-op")
	assert.ErrorIs(t, slots.Unhold(ctx, slot.ID), slotserrors.ErrNoHold)

	got, err := slots.FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BookedCount)
	assert.Equal(t, 0, got.HeldCount)

	assert.ErrorIs(t, slots.Hold(ctx, "not-an-id"), slotserrors.ErrInvalidID)
	assert.ErrorIs(t, slots.Hold(ctx, "64b7f0c2a1b2c3d4e5f60718"), slotserrors.ErrNotFound)
}

func TestTransactionRollsBackEveryWrite(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	slot := seedSlot(t, s, 3)
	boom := errors.New("boom")

	err := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.Slots().Hold(ctx, slot.ID); err != nil {
			return err
		}
		if err := s.Locks().Create(ctx, &model.SlotLock{ID: "l1", SlotID: slot.ID, State: model.LockActive}); err != nil {
			return err
		}
		if err := s.Bookings().Create(ctx, &model.Booking{LockID: "l1", Status: model.BookingConfirmed}); err != nil {
			return err
		}
		if _, err := s.Counter().Increment(ctx, "h1", "2026-03-02"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Slots().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.HeldCount)

	_, err = s.Locks().FindByID(ctx, "l1")
	assert.Error(t, err)

	_, err = s.Bookings().FindByLockID(ctx, "l1")
	assert.ErrorIs(t, err, bookingserrors.ErrNotFound)

	value, err := s.Counter().Increment(ctx, "h1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	slot := seedSlot(t, s, 3)
	boom := errors.New("boom")

	err := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
		inner := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
			return s.Slots().Hold(ctx, slot.ID)
		})
		require.NoError(t, inner)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Slots().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.HeldCount, "inner write must roll back with the outer transaction")
}

func TestLockTransitions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	locks := s.Locks()

	require.NoError(t, locks.Create(ctx, &model.SlotLock{
		ID: "l1", SlotID: "s1", State: model.LockActive, CreatedAt: t0, ExpiresAt: t0.Add(10 * time.Minute),
	}))

	ok, err := locks.MarkExpired(ctx, "l1", t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "a live lock cannot expire")

	counts, err := locks.CountActiveBySlot(ctx, []string{"s1"}, t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, counts["s1"])

	counts, err = locks.CountActiveBySlot(ctx, []string{"s1"}, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, counts["s1"], "a lock is dead from its expiry instant")

	ok, err = locks.MarkConfirmed(ctx, "l1", t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	stale, err := locks.FindStale(ctx, t0.Add(10*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	ok, err = locks.MarkExpired(ctx, "l1", t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locks.MarkReleased(ctx, "l1", t0.Add(11*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookingQueries(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	bookings := s.Bookings()

	seed := []*model.Booking{
		{HospitalID: "h1", LockID: "a", Date: "2026-03-01", StartTime: "09:00", Status: model.BookingConfirmed, Details: model.BookingDetails{Mode: model.ModeOnline}},
		{HospitalID: "h1", LockID: "b", Date: "2026-03-02", StartTime: "10:00", Status: model.BookingConfirmed, Details: model.BookingDetails{Mode: model.ModeOffline}},
		{HospitalID: "h1", LockID: "c", Date: "2026-03-02", StartTime: "09:00", Status: model.BookingCancelled, Details: model.BookingDetails{Mode: model.ModeOnline}},
		{HospitalID: "h2", LockID: "d", Date: "2026-03-02", StartTime: "09:00", Status: model.BookingConfirmed, Details: model.BookingDetails{Mode: model.ModeOnline}},
	}
	for _, b := range seed {
		require.NoError(t, bookings.Create(ctx, b))
	}
	assert.ErrorIs(t, bookings.Create(ctx, &model.Booking{LockID: "a"}), bookingserrors.ErrDuplicateLock)

	upcoming, err := bookings.Find(ctx, model.BookingFilter{HospitalID: "h1", FromDate: "2026-03-02"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "c", upcoming[0].LockID, "ordered by start time within a day")

	offline, err := bookings.Count(ctx, model.BookingFilter{Date: "2026-03-02", Mode: model.ModeOffline})
	require.NoError(t, err)
	assert.Equal(t, int64(1), offline)

	counts, err := bookings.CountByDateAndHospital(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []model.BookingCount{
		{Date: "2026-03-02", HospitalID: "h1", Count: 1},
		{Date: "2026-03-02", HospitalID: "h2", Count: 1},
	}, counts)
}

func slotFilter(hospitalID, date string) repository.SlotFilter {
	return repository.SlotFilter{HospitalID: hospitalID, Date: date}
}

func TestVisitTokenIndex(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	visits := s.Visits()

	for _, v := range []*model.Visit{
		{HospitalID: "h1", DayKey: "2026-03-02", Token: 2, PatientID: "p2"},
		{HospitalID: "h1", DayKey: "2026-03-02", Token: 1, PatientID: "p1"},
		{HospitalID: "h1", DayKey: "2026-03-03", Token: 1, PatientID: "p3"},
	} {
		require.NoError(t, visits.CreateVisit(ctx, v))
	}

	err := visits.CreateVisit(ctx, &model.Visit{HospitalID: "h1", DayKey: "2026-03-02", Token: 1, PatientID: "p4"})
	assert.ErrorIs(t, err, visitserrors.ErrDuplicateToken)

	day, err := visits.ListByDay(ctx, "h1", "2026-03-02", 10, 0)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, int64(1), day[0].Token)
	assert.Equal(t, int64(2), day[1].Token)

	count, err := visits.CountByDay(ctx, "h1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	found, err := visits.FindByToken(ctx, "h1", "2026-03-03", 1)
	require.NoError(t, err)
	assert.Equal(t, "p3", found.PatientID)

	_, err = visits.FindByToken(ctx, "h2", "2026-03-02", 1)
	assert.ErrorIs(t, err, visitserrors.ErrVisitNotFound)
}

func TestVisitTokenReleasedOnRollback(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.Visits().CreateVisit(ctx, &model.Visit{HospitalID: "h1", DayKey: "2026-03-02", Token: 1, BookingID: "b1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Visits().FindByToken(ctx, "h1", "2026-03-02", 1)
	assert.ErrorIs(t, err, visitserrors.ErrVisitNotFound)
	assert.NoError(t, s.Visits().CreateVisit(ctx, &model.Visit{HospitalID: "h1", DayKey: "2026-03-02", Token: 1, BookingID: "b1"}))
}
