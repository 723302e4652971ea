package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinicq/internal/events"
	"clinicq/internal/storage/memory"
	tokensservice "clinicq/internal/tokens/service"
	"clinicq/internal/visits/validator"
	"clinicq/pkg/config"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/locale"
	"clinicq/pkg/logger"
	"clinicq/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTokenIssuer struct {
	nextTokenFunc func(ctx context.Context, hospitalID string, at time.Time) (int64, error)
}

func (m *mockTokenIssuer) NextToken(ctx context.Context, hospitalID string, at time.Time) (int64, error) {
	return m.nextTokenFunc(ctx, hospitalID, at)
}

type fixture struct {
	store   *memory.Store
	cfg     *config.Config
	service VisitService
}

func newFixture(t *testing.T, tokens TokenIssuer) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	cfg := &config.Config{
		Log:      logger.New(logger.Config{Level: "error", Format: logger.JSON, AddSource: false, Service: "test"}),
		Calendar: locale.MustCalendar("+05:30"),
		Now:      func() time.Time { return now },
	}

	store := memory.NewStore()
	if tokens == nil {
		tokens = tokensservice.NewSequencer(store.Counter(), cfg)
	}
	ctx := context.Background()
	require.NoError(t, store.Patients().Add(ctx, &model.Patient{ID: "p1", HospitalID: "h1", Name: "Asha Rao"}))
	require.NoError(t, store.Patients().Add(ctx, &model.Patient{ID: "p2", HospitalID: "h1", Name: "Ravi Kumar"}))

	return &fixture{
		store: store,
		cfg:   cfg,
		service: NewVisitService(
			store.Bookings(),
			store.Patients(),
			store.Visits(),
			tokens,
			store,
			events.NoopPublisher{},
			validator.NewVisitValidator(cfg.Log),
			cfg,
		),
	}
}

func (f *fixture) booking(t *testing.T, lockID, status string) *model.Booking {
	t.Helper()
	booking := &model.Booking{
		HospitalID: "h1",
		LockID:     lockID,
		Date:       "2026-03-02",
		Status:     status,
		Details:    model.BookingDetails{DoctorID: "d1", Mode: model.ModeOnline},
	}
	require.NoError(t, f.store.Bookings().Create(context.Background(), booking))
	return booking
}

func (f *fixture) status(t *testing.T, bookingID string) string {
	t.Helper()
	booking, err := f.store.Bookings().FindByID(context.Background(), bookingID)
	require.NoError(t, err)
	return booking.Status
}

func TestCheckInAppointment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	booking := f.booking(t, "lock-1", model.BookingConfirmed)

	visit, err := f.service.CheckInAppointment(ctx, &model.CheckInRequest{BookingID: booking.ID, PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), visit.Token)
	assert.Equal(t, "2026-03-02", visit.DayKey)
	assert.Equal(t, model.VisitSourceAppointment, visit.Source)
	assert.Equal(t, model.VisitWaiting, visit.Status)
	assert.Equal(t, "d1", visit.DoctorID)
	assert.Equal(t, model.BookingCheckedIn, f.status(t, booking.ID))

	_, err = f.service.CheckInAppointment(ctx, &model.CheckInRequest{BookingID: booking.ID, PatientID: "p1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	walkIn, err := f.service.CheckInWalkIn(ctx, &model.WalkInRequest{HospitalID: "h1", PatientID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), walkIn.Token)
	assert.Equal(t, model.VisitSourceWalkIn, walkIn.Source)

	visits, err := f.store.Visits().ListByDay(ctx, "h1", "2026-03-02", 0, 0)
	require.NoError(t, err)
	assert.Len(t, visits, 2)
}

func TestCheckInAppointment_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cancelled := f.booking(t, "lock-1", model.BookingCancelled)
	confirmed := f.booking(t, "lock-2", model.BookingConfirmed)

	tests := []struct {
		name     string
		req      *model.CheckInRequest
		wantCode string
	}{
		{name: "cancelled booking", req: &model.CheckInRequest{BookingID: cancelled.ID, PatientID: "p1"}, wantCode: apperrors.CodeConflict},
		{name: "unknown booking", req: &model.CheckInRequest{BookingID: "64b7f0c2a1b2c3d4e5f60718", PatientID: "p1"}, wantCode: apperrors.CodeNotFound},
		{name: "unknown patient", req: &model.CheckInRequest{BookingID: confirmed.ID, PatientID: "p9"}, wantCode: apperrors.CodeNotFound},
		{name: "malformed booking id", req: &model.CheckInRequest{BookingID: "b-1", PatientID: "p1"}, wantCode: apperrors.CodeValidation},
		{name: "missing patient", req: &model.CheckInRequest{BookingID: confirmed.ID}, wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CheckInAppointment(ctx, tt.req)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}

	assert.Equal(t, model.BookingConfirmed, f.status(t, confirmed.ID))

	// no token was consumed by the rejected requests
	visit, err := f.service.CheckInWalkIn(ctx, &model.WalkInRequest{HospitalID: "h1", PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), visit.Token)
}

func TestCheckInAppointment_TokenFailure(t *testing.T) {
	tokens := &mockTokenIssuer{
		nextTokenFunc: func(ctx context.Context, hospitalID string, at time.Time) (int64, error) {
			return 0, apperrors.StorageUnavailable(errors.New("redis down"))
		},
	}
	f := newFixture(t, tokens)
	booking := f.booking(t, "lock-1", model.BookingConfirmed)

	_, err := f.service.CheckInAppointment(context.Background(), &model.CheckInRequest{BookingID: booking.ID, PatientID: "p1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageUnavailable), "got %v", err)
	assert.Equal(t, model.BookingConfirmed, f.status(t, booking.ID))
}

func TestCheckInAppointment_ConcurrentCheckInsOfOneBooking(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	booking := f.booking(t, "lock-1", model.BookingConfirmed)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CheckInAppointment(ctx, &model.CheckInRequest{BookingID: booking.ID, PatientID: "p1"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !apperrors.HasCode(err, apperrors.CodeConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	visits, err := f.store.Visits().ListByDay(ctx, "h1", "2026-03-02", 0, 0)
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestCheckInWalkIn_UnknownPatient(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.CheckInWalkIn(context.Background(), &model.WalkInRequest{HospitalID: "h2", PatientID: "p1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
}

func TestQueueReads(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Patients().Add(ctx, &model.Patient{ID: "p3", HospitalID: "h1", Name: "Meera Iyer"}))

	for _, patientID := range []string{"p1", "p2", "p3"} {
		_, err := f.service.CheckInWalkIn(ctx, &model.WalkInRequest{HospitalID: "h1", PatientID: patientID})
		require.NoError(t, err)
	}

	visits, total, err := f.service.ListToday(ctx, "h1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, visits, 3)
	for i, v := range visits {
		assert.Equal(t, int64(i+1), v.Token, "queue is in token order")
	}

	paged, total, err := f.service.ListToday(ctx, "h1", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, paged, 2)
	assert.Equal(t, int64(2), paged[0].Token)
	assert.Equal(t, int64(3), paged[1].Token)

	visit, err := f.service.FindByToken(ctx, "h1", 2)
	require.NoError(t, err)
	assert.Equal(t, "p2", visit.PatientID)

	other, total, err := f.service.ListToday(ctx, "h2", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
	assert.Equal(t, int64(0), total)

	tests := []struct {
		name       string
		hospitalID string
		token      int64
		wantCode   string
	}{
		{name: "token not issued", hospitalID: "h1", token: 9, wantCode: apperrors.CodeNotFound},
		{name: "other hospital", hospitalID: "h2", token: 2, wantCode: apperrors.CodeNotFound},
		{name: "zero token", hospitalID: "h1", token: 0, wantCode: apperrors.CodeInvalidInput},
		{name: "missing hospital", hospitalID: " ", token: 1, wantCode: apperrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.FindByToken(ctx, tt.hospitalID, tt.token)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestQueueReads_OnlyToday(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.CheckInWalkIn(ctx, &model.WalkInRequest{HospitalID: "h1", PatientID: "p1"})
	require.NoError(t, err)

	// 2026-03-03 09:30 in the business offset
	f.cfg.Now = func() time.Time { return time.Date(2026, 3, 3, 4, 0, 0, 0, time.UTC) }

	visits, total, err := f.service.ListToday(ctx, "h1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, visits)
	assert.Equal(t, int64(0), total)

	_, err = f.service.FindByToken(ctx, "h1", 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
}

func TestCheckInWalkIn_DuplicateTokenRejected(t *testing.T) {
	tokens := &mockTokenIssuer{
		nextTokenFunc: func(ctx context.Context, hospitalID string, at time.Time) (int64, error) {
			return 1, nil
		},
	}
	f := newFixture(t, tokens)
	ctx := context.Background()

	_, err := f.service.CheckInWalkIn(ctx, &model.WalkInRequest{HospitalID: "h1", PatientID: "p1"})
	require.NoError(t, err)

	_, err = f.service.CheckInWalkIn(ctx, &model.WalkInRequest{HospitalID: "h1", PatientID: "p2"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	booking := f.booking(t, "lock-1", model.BookingConfirmed)
	_, err = f.service.CheckInAppointment(ctx, &model.CheckInRequest{BookingID: booking.ID, PatientID: "p2"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
	assert.Equal(t, model.BookingConfirmed, f.status(t, booking.ID), "the check-in transaction rolled back")

	visits, err := f.store.Visits().ListByDay(ctx, "h1", "2026-03-02", 0, 0)
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}
