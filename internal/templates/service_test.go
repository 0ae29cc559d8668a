package templates_test

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
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/templates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cache     *cache.MemoryCache
	store     *templates.Store
	slots     *slots.Service
	templates *templates.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := cache.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	slotService := slots.NewService(memstore.New().Slots(), c, time.UTC, log)
	store := templates.NewStore(c)
	return fixture{
		cache:     c,
		store:     store,
		slots:     slotService,
		templates: templates.NewService(store, slotService),
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items := []templates.TemplateSlot{
		{StartTime: "09:00", EndTime: "09:45", Capacity: 1},
		{StartTime: "09:45", EndTime: "10:30", Capacity: 2},
	}
	saved, err := f.templates.CreateOrUpdateSlotTemplate(ctx, templates.Monday, items)
	require.NoError(t, err)
	assert.Equal(t, templates.Monday, saved.Day)

	got, err := f.templates.GetSlotTemplate(ctx, templates.Monday)
	require.NoError(t, err)
	assert.Equal(t, items, got.Slots)

	sunday, err := f.templates.GetSlotTemplate(ctx, templates.Sunday)
	require.NoError(t, err, "a missing template reads as empty")
	assert.Equal(t, templates.Sunday, sunday.Day)
	assert.Empty(t, sunday.Slots)
	assert.NotNil(t, sunday.Slots)

	emptied, err := f.templates.EmptySlotTemplate(ctx, templates.Monday)
	require.NoError(t, err)
	assert.Empty(t, emptied.Slots)

	got, err = f.templates.GetSlotTemplate(ctx, templates.Monday)
	require.NoError(t, err)
	assert.Empty(t, got.Slots)
}

func TestTemplateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		items []templates.TemplateSlot
		want  error
	}{
		{
			name: "overlap",
			items: []templates.TemplateSlot{
				{StartTime: "09:00", EndTime: "10:00", Capacity: 1},
				{StartTime: "09:30", EndTime: "10:30", Capacity: 1},
			},
			want: templates.ErrOverlap,
		},
		{
			name:  "negative capacity",
			items: []templates.TemplateSlot{{StartTime: "09:00", EndTime: "10:00", Capacity: -1}},
			want:  templates.ErrInvalidCapacity,
		},
		{
			name:  "inverted range",
			items: []templates.TemplateSlot{{StartTime: "10:00", EndTime: "09:00", Capacity: 1}},
			want:  schedule.ErrInvalidRange,
		},
		{
			name:  "bad clock",
			items: []templates.TemplateSlot{{StartTime: "9am", EndTime: "10:00", Capacity: 1}},
			want:  schedule.ErrInvalidTime,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.templates.CreateOrUpdateSlotTemplate(ctx, templates.Tuesday, tt.items)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := f.templates.GetSlotTemplate(ctx, templates.Tuesday)
	require.NoError(t, err)
	assert.Empty(t, got.Slots, "rejected templates are not stored")
}

func TestGetAllSlotTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	one := []templates.TemplateSlot{{StartTime: "09:00", EndTime: "10:00", Capacity: 1}}
	for _, day := range []templates.Day{templates.Friday, templates.Monday, templates.Wednesday} {
		_, err := f.templates.CreateOrUpdateSlotTemplate(ctx, day, one)
		require.NoError(t, err)
	}
	require.NoError(t, f.cache.Set(ctx, templates.Key(templates.Wednesday), []byte("{not json"), 0))

	all, err := f.templates.GetAllSlotTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "corrupt entries are skipped")
	assert.Equal(t, templates.Monday, all[0].Day)
	assert.Equal(t, templates.Friday, all[1].Day)
}

func TestApplySlotTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.templates.ApplySlotTemplate(ctx, templates.Monday, "2025-06-02")
	assert.ErrorIs(t, err, templates.ErrNoTemplate)

	_, err = f.slots.CreateSlot(ctx, "2025-06-02", slots.Spec{StartTime: "07:00", EndTime: "07:30", Capacity: 1})
	require.NoError(t, err)

	_, err = f.templates.CreateOrUpdateSlotTemplate(ctx, templates.Monday, []templates.TemplateSlot{
		{StartTime: "09:00", EndTime: "09:45", Capacity: 1},
		{StartTime: "09:45", EndTime: "10:30", Capacity: 4},
	})
	require.NoError(t, err)

	created, err := f.templates.ApplySlotTemplate(ctx, templates.Monday, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, created, 2)

	items, err := f.slots.GetAllSlotsForDate(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, items, 2, "applying replaces the existing slots of the date")
	assert.Equal(t, "09:00", items[0].StartTime)
	assert.Equal(t, 4, items[1].Capacity)

	// The weekday of the target date does not have to match the template.
	_, err = f.templates.ApplySlotTemplate(ctx, templates.Monday, "2025-06-04")
	require.NoError(t, err)

	_, err = f.templates.ApplySlotTemplate(ctx, templates.Monday, "2025-02-30")
	assert.ErrorIs(t, err, schedule.ErrInvalidDate)
}

func TestSeedDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	custom := []templates.TemplateSlot{{StartTime: "10:00", EndTime: "11:00", Capacity: 3}}
	_, err := f.templates.CreateOrUpdateSlotTemplate(ctx, templates.Tuesday, custom)
	require.NoError(t, err)

	seeded, err := templates.SeedDefaults(ctx, f.store, schedule.DefaultSlotMinutes, slots.DefaultCapacity)
	require.NoError(t, err)
	assert.ElementsMatch(t, []templates.Day{
		templates.Monday, templates.Wednesday, templates.Thursday, templates.Friday, templates.Saturday,
	}, seeded)

	monday, err := f.templates.GetSlotTemplate(ctx, templates.Monday)
	require.NoError(t, err)
	require.Len(t, monday.Slots, 8)
	assert.Equal(t, "09:00", monday.Slots[0].StartTime)
	assert.Equal(t, "14:00", monday.Slots[4].StartTime)
	assert.Equal(t, slots.DefaultCapacity, monday.Slots[0].Capacity)

	saturday, err := f.templates.GetSlotTemplate(ctx, templates.Saturday)
	require.NoError(t, err)
	assert.Len(t, saturday.Slots, 5)

	tuesday, err := f.templates.GetSlotTemplate(ctx, templates.Tuesday)
	require.NoError(t, err)
	assert.Equal(t, custom, tuesday.Slots, "existing templates are left alone")

	sunday, err := f.templates.GetSlotTemplate(ctx, templates.Sunday)
	require.NoError(t, err)
	assert.Empty(t, sunday.Slots)

	again, err := templates.SeedDefaults(ctx, f.store, schedule.DefaultSlotMinutes, slots.DefaultCapacity)
	require.NoError(t, err)
	assert.Empty(t, again)
}
