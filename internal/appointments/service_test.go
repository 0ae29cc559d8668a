package appointments_test

import (
	"context"
	"io"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/appointments"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/httpx"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/memstore"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	slots *slots.Service
	appts *appointments.Service
	cache *cache.MemoryCache
}

// newFixture wires both services over one in-memory store with the clock
// frozen at 2025-06-01 08:00 UTC.
func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	c := cache.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	slotService := slots.NewService(store.Slots(), c, time.UTC, log)
	apptService := appointments.NewService(store.Appointments(), slotService, c, appointments.Config{
		Location:         time.UTC,
		CacheTTL:         time.Minute,
		AvailabilityDays: 7,
	}, log)
	apptService.SetClock(func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) })

	return fixture{slots: slotService, appts: apptService, cache: c}
}

func booking(date, clock, email string) appointments.BookingRequest {
	return appointments.BookingRequest{
		Date:  date,
		Time:  clock,
		Name:  "Ada Lovelace",
		Email: email,
		Phone: "+90 555 000 0000",
	}
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 2})
	require.NoError(t, err)

	first, err := f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", " First@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusPending, first.Status)
	assert.Equal(t, "first@example.com", first.Email)
	assert.Equal(t, "10:00", first.StartTime)
	assert.Equal(t, "10:45", first.EndTime)

	second, err := f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "second@example.com"))
	require.NoError(t, err)

	slot, err := f.slots.GetSlot(ctx, "2025-06-02", "10:00")
	require.NoError(t, err)
	assert.False(t, slot.IsAvailable, "two pending appointments fill a capacity 2 slot")

	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "third@example.com"))
	assert.ErrorIs(t, err, appointments.ErrSlotFull)

	cancelled, err := f.appts.CancelAppointment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, cancelled.Status)

	_, err = f.appts.CancelAppointment(ctx, first.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidTransition)

	slot, err = f.slots.GetSlot(ctx, "2025-06-02", "10:00")
	require.NoError(t, err)
	assert.True(t, slot.IsAvailable, "cancelling releases the seat")

	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "third@example.com"))
	require.NoError(t, err)

	booked, err := f.appts.BookAppointment(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusBooked, booked.Status)

	_, err = f.appts.BookAppointment(ctx, second.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidTransition)

	_, err = f.appts.BookAppointment(ctx, first.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidTransition, "cancelled is terminal")
}

func TestCreateAppointmentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.CreateSlot(ctx, "2025-05-31", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 1})
	require.NoError(t, err)
	_, err = f.slots.CreateSlot(ctx, "2025-06-01", slots.Spec{StartTime: "08:00", EndTime: "08:45", Capacity: 1})
	require.NoError(t, err)

	_, err = f.appts.CreateAppointment(ctx, booking("2025-05-31", "10:00", "a@example.com"))
	assert.ErrorIs(t, err, appointments.ErrSlotInPast)

	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-01", "08:00", "a@example.com"))
	assert.ErrorIs(t, err, appointments.ErrSlotInPast, "a slot starting now is no longer bookable")

	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "a@example.com"))
	assert.ErrorIs(t, err, slots.ErrNotFound)

	direct, err := f.appts.BookDirect(ctx, booking("2025-05-31", "10:00", "a@example.com"))
	require.NoError(t, err, "admins may record past appointments")
	assert.Equal(t, appointments.StatusBooked, direct.Status)
}

func TestZeroCapacitySlotRejectsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 0})
	require.NoError(t, err)

	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "a@example.com"))
	assert.ErrorIs(t, err, appointments.ErrSlotFull)
}

func TestUpdateAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 1})
	require.NoError(t, err)
	appt, err := f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "a@example.com"))
	require.NoError(t, err)

	pending := "pending"
	blank := "   "
	email := " New@Example.com "
	updated, err := f.appts.UpdateAppointment(ctx, appt.ID, appointments.UpdateRequest{Status: &pending, Email: &email, Note: &blank})
	require.NoError(t, err, "patching to the current status is a no-op")
	assert.Equal(t, appointments.StatusPending, updated.Status)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Nil(t, updated.Note)

	completed := "COMPLETED"
	_, err = f.appts.UpdateAppointment(ctx, appt.ID, appointments.UpdateRequest{Status: &completed})
	assert.ErrorIs(t, err, appointments.ErrInvalidTransition)

	unknown := "archived"
	_, err = f.appts.UpdateAppointment(ctx, appt.ID, appointments.UpdateRequest{Status: &unknown})
	assert.ErrorIs(t, err, appointments.ErrInvalidStatus)

	booked := "booked"
	updated, err = f.appts.UpdateAppointment(ctx, appt.ID, appointments.UpdateRequest{Status: &booked})
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusBooked, updated.Status)

	_, err = f.appts.UpdateAppointment(ctx, "nope", appointments.UpdateRequest{})
	assert.ErrorIs(t, err, appointments.ErrNotFound)
}

func TestGetAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.appts.GetAppointment(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, appointments.ErrNotFound)
	_, err = f.appts.GetAppointment(ctx, "7f1f7c4e-2b8a-4d6c-9a51-3c1c0f3e9b10")
	assert.ErrorIs(t, err, appointments.ErrNotFound)
}

func TestGetAllAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, date := range []string{"2025-06-02", "2025-06-03", "2025-06-04"} {
		_, err := f.slots.CreateSlot(ctx, date, slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 3})
		require.NoError(t, err)
		_, err = f.appts.CreateAppointment(ctx, booking(date, "10:00", "a@example.com"))
		require.NoError(t, err)
	}
	other, err := f.appts.CreateAppointment(ctx, booking("2025-06-03", "10:00", "b@example.com"))
	require.NoError(t, err)
	_, err = f.appts.BookAppointment(ctx, other.ID)
	require.NoError(t, err)

	items, total, err := f.appts.GetAllAppointments(ctx, appointments.ListFilter{}, httpx.Page{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 2)
	assert.Equal(t, "2025-06-04", items[0].Date, "newest date first")

	items, total, err = f.appts.GetAllAppointments(ctx, appointments.ListFilter{}, httpx.Page{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, items)

	items, total, err = f.appts.GetAllAppointments(ctx, appointments.ListFilter{Status: appointments.StatusBooked}, httpx.Page{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, other.ID, items[0].ID)

	_, total, err = f.appts.GetAllAppointments(ctx, appointments.ListFilter{Email: "A@EXAMPLE.COM", StartDate: "2025-06-03"}, httpx.Page{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	items, total, err = f.appts.GetAllAppointments(ctx, appointments.ListFilter{AppointmentID: "garbage"}, httpx.Page{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, items)

	_, _, err = f.appts.GetAllAppointments(ctx, appointments.ListFilter{StartDate: "2025-06-05", EndDate: "2025-06-01"}, httpx.Page{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, slots.ErrInvalidRange)
}

func TestGetAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.CreateSlot(ctx, "2025-06-01", slots.Spec{StartTime: "07:00", EndTime: "07:45", Capacity: 1})
	require.NoError(t, err)
	_, err = f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 2})
	require.NoError(t, err)
	_, err = f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "09:00", EndTime: "09:45", Capacity: 1})
	require.NoError(t, err)
	_, err = f.slots.CreateSlot(ctx, "2025-06-20", slots.Spec{StartTime: "09:00", EndTime: "09:45", Capacity: 1})
	require.NoError(t, err)

	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", "a@example.com"))
	require.NoError(t, err)
	_, err = f.appts.CreateAppointment(ctx, booking("2025-06-02", "09:00", "a@example.com"))
	require.NoError(t, err)

	got, err := f.appts.GetAvailability(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", got.StartDate)
	assert.Equal(t, "2025-06-07", got.EndDate)
	require.Len(t, got.Days, 2, "slots outside the default window are excluded")

	today := got.Days[0]
	require.Len(t, today.Slots, 1)
	assert.False(t, today.Slots[0].IsAvailable, "past slots are never available")
	assert.Equal(t, 1, today.Slots[0].Remaining)

	tomorrow := got.Days[1]
	require.Len(t, tomorrow.Slots, 2)
	assert.Equal(t, "09:00", tomorrow.Slots[0].StartTime)
	assert.Equal(t, 0, tomorrow.Slots[0].Remaining)
	assert.False(t, tomorrow.Slots[0].IsAvailable)
	assert.Equal(t, 1, tomorrow.Slots[1].Booked)
	assert.Equal(t, 1, tomorrow.Slots[1].Remaining)
	assert.True(t, tomorrow.Slots[1].IsAvailable)

	_, ok, err := f.cache.Get(ctx, cache.AvailabilityPrefix+"2025-06-01:2025-06-07")
	require.NoError(t, err)
	assert.True(t, ok, "availability is cached")

	_, err = f.slots.CreateSlot(ctx, "2025-06-03", slots.Spec{StartTime: "09:00", EndTime: "09:45", Capacity: 1})
	require.NoError(t, err)
	got, err = f.appts.GetAvailability(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, got.Days, 3, "slot mutations invalidate cached availability")

	_, err = f.appts.GetAvailability(ctx, "2025-06-05", "2025-06-01")
	assert.ErrorIs(t, err, slots.ErrInvalidRange)
}

func TestConcurrentBookingsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 5})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.appts.CreateAppointment(ctx, booking("2025-06-02", "10:00", fmt.Sprintf("guest%d@example.com", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, appointments.ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, 15, full)
}
