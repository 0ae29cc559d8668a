package templates

import (
	"context"
	"errors"
	"sort"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"
)

var (
	ErrNoTemplate      = errors.New("no template found")
	ErrInvalidCapacity = errors.New("capacity must be zero or greater")
	ErrOverlap         = errors.New("template slots overlap")
)

// SlotReplacer swaps every slot on a date atomically.
type SlotReplacer interface {
	ReplaceSlotsForDate(ctx context.Context, date string, specs []slots.Spec) ([]slots.Slot, error)
}

type Service struct {
	store *Store
	slots SlotReplacer
}

func NewService(store *Store, replacer SlotReplacer) *Service {
	return &Service{store: store, slots: replacer}
}

// GetSlotTemplate never reports absence: a day without a stored template
// yields an empty one.
func (s *Service) GetSlotTemplate(ctx context.Context, day Day) (SlotTemplate, error) {
	tpl, ok, err := s.store.Get(ctx, day)
	if err != nil {
		return SlotTemplate{}, err
	}
	if !ok {
		return SlotTemplate{Day: day, Slots: []TemplateSlot{}}, nil
	}
	return tpl, nil
}

// CreateOrUpdateSlotTemplate overwrites the whole slot list of day.
func (s *Service) CreateOrUpdateSlotTemplate(ctx context.Context, day Day, items []TemplateSlot) (SlotTemplate, error) {
	if err := validateSlots(items); err != nil {
		return SlotTemplate{}, err
	}
	tpl := SlotTemplate{Day: day, Slots: append([]TemplateSlot{}, items...)}
	if err := s.store.Put(ctx, tpl); err != nil {
		return SlotTemplate{}, err
	}
	return tpl, nil
}

func (s *Service) EmptySlotTemplate(ctx context.Context, day Day) (SlotTemplate, error) {
	tpl := SlotTemplate{Day: day, Slots: []TemplateSlot{}}
	if err := s.store.Put(ctx, tpl); err != nil {
		return SlotTemplate{}, err
	}
	return tpl, nil
}

// GetAllSlotTemplates returns the readable templates among the indexed days,
// Monday first.
func (s *Service) GetAllSlotTemplates(ctx context.Context) ([]SlotTemplate, error) {
	days, err := s.store.IndexedDays(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(days, func(i, j int) bool { return days[i].order() < days[j].order() })

	out := make([]SlotTemplate, 0, len(days))
	for _, day := range days {
		tpl, ok, err := s.store.Get(ctx, day)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

// ApplySlotTemplate replaces every slot on date with the slots of the day's
// template, in template order. The weekday of date is not required to match.
func (s *Service) ApplySlotTemplate(ctx context.Context, day Day, date string) ([]slots.Slot, error) {
	tpl, err := s.GetSlotTemplate(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(tpl.Slots) == 0 {
		return nil, ErrNoTemplate
	}

	specs := make([]slots.Spec, 0, len(tpl.Slots))
	for _, item := range tpl.Slots {
		specs = append(specs, slots.Spec{
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
			Capacity:  item.Capacity,
		})
	}
	return s.slots.ReplaceSlotsForDate(ctx, date, specs)
}

func validateSlots(items []TemplateSlot) error {
	intervals := make([]schedule.Interval, 0, len(items))
	for _, item := range items {
		interval, err := schedule.ClockRange(item.StartTime, item.EndTime)
		if err != nil {
			return err
		}
		if item.Capacity < 0 {
			return ErrInvalidCapacity
		}
		intervals = append(intervals, interval)
	}
	if schedule.HasInternalOverlap(intervals) {
		return ErrOverlap
	}
	return nil
}

// FromRequest converts request slots, defaulting a missing capacity to 1.
func FromRequest(items []TemplateSlotRequest) []TemplateSlot {
	out := make([]TemplateSlot, 0, len(items))
	for _, item := range items {
		capacity := slots.DefaultCapacity
		if item.Capacity != nil {
			capacity = *item.Capacity
		}
		out = append(out, TemplateSlot{StartTime: item.StartTime, EndTime: item.EndTime, Capacity: capacity})
	}
	return out
}
