package bootstrap

import (
	"context"
	"testing"
	"time"

	"clinicq/internal/events"
	"clinicq/pkg/config"
	"clinicq/pkg/locale"
	"clinicq/pkg/logger"
	"clinicq/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryConfig() *config.Config {
	now := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	return &config.Config{
		Log:            logger.New(logger.Config{Level: "error", Format: logger.JSON, AddSource: false, Service: "test"}),
		StorageBackend: config.StorageMemory,
		TokenBackend:   config.TokenBackendMongo,
		LockTTL:        10 * time.Minute,
		SweepBatchSize: 100,
		Calendar:       locale.MustCalendar("+05:30"),
		Now:            func() time.Time { return now },
	}
}

func TestMemoryGraph_BookAndCheckIn(t *testing.T) {
	cfg := newMemoryConfig()
	ctx := context.Background()

	repos := NewRepositories(cfg)
	require.NotNil(t, repos.Store)

	counter, err := NewCounter(ctx, cfg, repos)
	require.NoError(t, err)
	services := NewServices(cfg, repos, counter, events.NoopPublisher{})

	result, err := services.Slots.Generate(ctx, &model.SlotGenerationRequest{
		HospitalID:  "h1",
		FromDate:    "2026-03-02",
		ToDate:      "2026-03-02",
		DayStart:    "09:00",
		DayEnd:      "10:00",
		SlotMinutes: 30,
		MaxCapacity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	views, err := services.Bookings.ListSlots(ctx, "h1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, views, 2)

	grant, err := services.Bookings.Lock(ctx, &model.LockRequest{SlotID: views[0].ID, SessionID: "s1"})
	require.NoError(t, err)

	booking, err := services.Bookings.ConfirmBooking(ctx, &model.ConfirmRequest{
		LockID:         grant.LockID,
		BookingDetails: model.BookingDetails{PatientName: "Asha Rao", PatientPhone: "+919876543210"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)

	slot, err := repos.Slots.FindByID(ctx, views[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, slot.BookedCount)
	assert.Equal(t, 0, slot.HeldCount)

	require.NoError(t, repos.Store.Patients().Add(ctx, &model.Patient{ID: "p1", HospitalID: "h1", Name: "Asha Rao"}))
	visit, err := services.Visits.CheckInAppointment(ctx, &model.CheckInRequest{BookingID: booking.ID, PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), visit.Token)

	token, err := services.Tokens.NextTokenForDay(ctx, "h1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(2), token, "walk-ins and check-ins share one sequence")
}

func TestMigrate_NothingToApply(t *testing.T) {
	cfg := newMemoryConfig()
	assert.NoError(t, Migrate(context.Background(), cfg))
}
