package templates

import (
	"context"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
)

// SeedDefaults writes the default opening hours, cut into duration minute
// slots, for every day that has no stored template yet. It returns the days
// it wrote.
func SeedDefaults(ctx context.Context, store *Store, duration, capacity int) ([]Day, error) {
	seeded := make([]Day, 0, len(Days))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		ranges := schedule.DefaultRanges(wd)
		if len(ranges) == 0 {
			continue
		}
		day := DayOf(wd)
		if _, ok, err := store.Get(ctx, day); err != nil {
			return seeded, err
		} else if ok {
			continue
		}

		intervals, err := schedule.GenerateIntervals(ranges, duration)
		if err != nil {
			return seeded, err
		}
		items := make([]TemplateSlot, 0, len(intervals))
		for _, iv := range intervals {
			items = append(items, TemplateSlot{StartTime: iv.StartClock(), EndTime: iv.EndClock(), Capacity: capacity})
		}
		if err := validateSlots(items); err != nil {
			return seeded, err
		}
		if err := store.Put(ctx, SlotTemplate{Day: day, Slots: items}); err != nil {
			return seeded, err
		}
		seeded = append(seeded, day)
	}
	return seeded, nil
}
