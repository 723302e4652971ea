package service

import (
	"context"
	"testing"
	"time"

	"clinicq/internal/slots/repository"
	"clinicq/internal/slots/validator"
	"clinicq/internal/storage/memory"
	"clinicq/pkg/config"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/locale"
	"clinicq/pkg/logger"
	"clinicq/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 09:30 on 2026-03-02 in the clinic's +05:30 business day.
var t0 = time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (SlotService, *memory.Store, *config.Config) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, AddSource: false, Service: "test"})
	calendar := locale.MustCalendar("+05:30")
	cfg := &config.Config{
		Log:               log,
		Calendar:          calendar,
		WindowDefaultDays: 7,
		WindowMaxDays:     31,
		WindowScanCapDays: 60,
		Now:               func() time.Time { return t0 },
	}
	store := memory.NewStore()
	return NewSlotService(store.Slots(), store.Locks(), validator.NewSlotValidator(log, calendar), cfg), store, cfg
}

func seedDay(t *testing.T, store *memory.Store, hospitalID, date string, slots, capacity int) []*model.Slot {
	t.Helper()
	rows := make([]*model.Slot, 0, slots)
	for i := 1; i <= slots; i++ {
		rows = append(rows, &model.Slot{HospitalID: hospitalID, Date: date, SlotNumber: i, MaxCapacity: capacity})
	}
	_, err := store.Slots().CreateMany(context.Background(), rows)
	require.NoError(t, err)
	return rows
}

func TestWindow_SparseDays(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedDay(t, store, "h1", "2026-03-03", 2, 2)
	seedDay(t, store, "h1", "2026-03-10", 1, 3)
	seedDay(t, store, "h1", "2026-03-31", 4, 1)
	seedDay(t, store, "h2", "2026-03-04", 1, 1)
	seedDay(t, store, "h1", "2026-06-01", 1, 1)

	window, err := svc.Window(ctx, "h1", "", 30)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02", window.From)
	assert.False(t, window.HasMore)
	assert.Equal(t, []model.DaySummary{
		{Date: "2026-03-03", SlotCount: 2, AvailableCount: 4},
		{Date: "2026-03-10", SlotCount: 1, AvailableCount: 3},
		{Date: "2026-03-31", SlotCount: 4, AvailableCount: 4},
	}, window.Days)
}

func TestWindow_LimitsAndClamps(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	for _, date := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		seedDay(t, store, "h1", date, 1, 1)
	}

	window, err := svc.Window(ctx, "h1", "2026-03-02", 2)
	require.NoError(t, err)
	assert.Len(t, window.Days, 2)
	assert.True(t, window.HasMore)

	window, err = svc.Window(ctx, "h1", "2026-03-02", 500)
	require.NoError(t, err)
	assert.Len(t, window.Days, 3)
	assert.False(t, window.HasMore)

	_, err = svc.Window(ctx, "h1", "March 2", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Window(ctx, " ", "", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestListViews_CountsLiveLocksAndCommits(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	slots := seedDay(t, store, "h1", "2026-03-02", 2, 2)
	busy := slots[0].ID

	require.NoError(t, store.Slots().Hold(ctx, busy))
	require.NoError(t, store.Locks().Create(ctx, &model.SlotLock{
		ID: "live", SlotID: busy, State: model.LockActive, CreatedAt: t0, ExpiresAt: t0.Add(10 * time.Minute),
	}))
	require.NoError(t, store.Slots().Hold(ctx, busy))
	require.NoError(t, store.Slots().Commit(ctx, busy))
	require.NoError(t, store.Locks().Create(ctx, &model.SlotLock{
		ID: "stale", SlotID: busy, State: model.LockActive, CreatedAt: t0.Add(-time.Hour), ExpiresAt: t0.Add(-50 * time.Minute),
	}))

	views, err := svc.ListViews(ctx, "h1", "")
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 0, views[0].AvailableCount, "one live lock and one booking fill the slot")
	assert.Equal(t, 2, views[1].AvailableCount)

	views, err = svc.ListViews(ctx, "h1", "2026-03-05")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestGenerate_IsRepeatable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := func() *model.SlotGenerationRequest {
		return &model.SlotGenerationRequest{
			HospitalID:  "h1",
			FromDate:    "2026-03-02",
			ToDate:      "2026-03-03",
			DayStart:    "09:00",
			DayEnd:      "10:00",
			SlotMinutes: 15,
			MaxCapacity: 3,
		}
	}

	result, err := svc.Generate(ctx, req())
	require.NoError(t, err)
	assert.Equal(t, &model.SlotGenerationResult{HospitalID: "h1", Days: 2, Created: 8, Skipped: 0}, result)

	result, err = svc.Generate(ctx, req())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 8, result.Skipped)

	bad := req()
	bad.SlotMinutes = 1
	_, err = svc.Generate(ctx, bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)

	slots, total, err := svc.GetAll(ctx, repository.SlotFilter{HospitalID: "h1", Date: "2026-03-03"}, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, slots, 3)
}

func TestDelete(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	slots := seedDay(t, store, "h1", "2026-03-02", 3, 1)
	require.NoError(t, store.Slots().Hold(ctx, slots[0].ID))

	err := svc.Delete(ctx, slots[0].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	require.NoError(t, svc.Delete(ctx, slots[1].ID))
	err = svc.Delete(ctx, slots[1].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)

	err = svc.Delete(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)

	deleted, err := svc.DeleteByDate(ctx, "h1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "held slot survives")
}
