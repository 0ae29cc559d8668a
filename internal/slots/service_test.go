package slots_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/memstore"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*slots.Service, *cache.MemoryCache) {
	t.Helper()
	c := cache.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return slots.NewService(memstore.New().Slots(), c, time.UTC, log), c
}

func TestCreateSlotRejectsOverlap(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "11:00", Capacity: 1})
	require.NoError(t, err)
	assert.Equal(t, "10:00", first.StartTime)
	assert.Equal(t, "11:00", first.EndTime)
	assert.True(t, first.IsAvailable)

	_, err = svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:30", EndTime: "11:30", Capacity: 1})
	assert.ErrorIs(t, err, slots.ErrOverlap)

	_, err = svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "11:00", EndTime: "12:00", Capacity: 1})
	assert.NoError(t, err, "touching slots do not overlap")

	_, err = svc.CreateSlot(ctx, "2025-06-03", slots.Spec{StartTime: "10:30", EndTime: "11:30", Capacity: 1})
	assert.NoError(t, err, "other dates are independent")
}

func TestCreateSlotValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		date string
		spec slots.Spec
		want error
	}{
		{name: "bad date", date: "2025-13-01", spec: slots.Spec{StartTime: "10:00", EndTime: "11:00"}, want: schedule.ErrInvalidDate},
		{name: "bad clock", date: "2025-06-02", spec: slots.Spec{StartTime: "25:00", EndTime: "26:00"}, want: schedule.ErrInvalidTime},
		{name: "end before start", date: "2025-06-02", spec: slots.Spec{StartTime: "11:00", EndTime: "10:00"}, want: schedule.ErrInvalidRange},
		{name: "empty interval", date: "2025-06-02", spec: slots.Spec{StartTime: "11:00", EndTime: "11:00"}, want: schedule.ErrInvalidRange},
		{name: "negative capacity", date: "2025-06-02", spec: slots.Spec{StartTime: "10:00", EndTime: "11:00", Capacity: -1}, want: slots.ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSlot(ctx, tt.date, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestZeroCapacitySlotIsUnavailable(t *testing.T) {
	svc, _ := newService(t)
	slot, err := svc.CreateSlot(context.Background(), "2025-06-02", slots.Spec{StartTime: "09:00", EndTime: "09:45", Capacity: 0})
	require.NoError(t, err)
	assert.False(t, slot.IsAvailable)
}

func TestGetSlot(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "09:00", EndTime: "09:45", Capacity: 2})
	require.NoError(t, err)

	got, err := svc.GetSlot(ctx, "2025-06-02", "09:00")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 2, got.Capacity)

	_, err = svc.GetSlot(ctx, "2025-06-02", "09:30")
	assert.ErrorIs(t, err, slots.ErrNotFound)
}

func TestRangeListing(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, date := range []string{"2025-06-03", "2025-06-01", "2025-06-02"} {
		_, err := svc.CreateSlot(ctx, date, slots.Spec{StartTime: "09:00", EndTime: "10:00", Capacity: 1})
		require.NoError(t, err)
	}

	items, total, err := svc.GetAllSlotsForDateRange(ctx, "2025-06-02", "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "2025-06-02", items[0].Date)
	assert.Equal(t, "2025-06-03", items[1].Date)

	_, total, err = svc.GetAllSlotsForDateRange(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, _, err = svc.GetAllSlotsForDateRange(ctx, "2025-06-03", "2025-06-01")
	assert.ErrorIs(t, err, slots.ErrInvalidRange)
}

func TestEmptyAndDelete(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	a, err := svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "09:00", EndTime: "10:00", Capacity: 1})
	require.NoError(t, err)
	_, err = svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "11:00", Capacity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteSlot(ctx, "not-a-uuid"), slots.ErrNotFound)
	require.NoError(t, svc.DeleteSlot(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteSlot(ctx, a.ID), slots.ErrNotFound)

	require.NoError(t, c.Set(ctx, cache.AvailabilityPrefix+"x", []byte("{}"), time.Minute))
	deleted, err := svc.EmptySlotsForDate(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, ok, err := c.Get(ctx, cache.AvailabilityPrefix+"x")
	require.NoError(t, err)
	assert.False(t, ok, "mutations drop cached availability")

	items, err := svc.GetAllSlotsForDate(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReplaceSlotsForDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "08:00", EndTime: "09:00", Capacity: 1})
	require.NoError(t, err)

	created, err := svc.ReplaceSlotsForDate(ctx, "2025-06-02", []slots.Spec{
		{StartTime: "09:00", EndTime: "09:45", Capacity: 1},
		{StartTime: "09:45", EndTime: "10:30", Capacity: 3},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	items, err := svc.GetAllSlotsForDate(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "09:00", items[0].StartTime)
	assert.Equal(t, 3, items[1].Capacity)

	_, err = svc.ReplaceSlotsForDate(ctx, "2025-06-02", []slots.Spec{
		{StartTime: "09:00", EndTime: "10:00", Capacity: 1},
		{StartTime: "09:30", EndTime: "10:30", Capacity: 1},
	})
	assert.ErrorIs(t, err, slots.ErrOverlap)

	items, err = svc.GetAllSlotsForDate(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Len(t, items, 2, "a rejected replacement leaves the date untouched")
}
