// Package memstore keeps slots and appointments in process memory. It backs
// local development when no DATABASE_URL is configured and the service
// tests; one mutex plays the role of the row locks and transactions used by
// the Postgres repositories.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/appointments"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"
)

type Store struct {
	mu           sync.Mutex
	slots        map[string]slots.Slot
	appointments map[string]appointments.Appointment
}

func New() *Store {
	return &Store{
		slots:        make(map[string]slots.Slot),
		appointments: make(map[string]appointments.Appointment),
	}
}

// Slots returns the store as a slots.Repository.
func (s *Store) Slots() *SlotRepository {
	return &SlotRepository{store: s}
}

// Appointments returns the store as an appointments.Repository.
func (s *Store) Appointments() *AppointmentRepository {
	return &AppointmentRepository{store: s}
}

type SlotRepository struct {
	store *Store
}

var _ slots.Repository = (*SlotRepository)(nil)

func (r *SlotRepository) Create(_ context.Context, slot slots.Slot) (slots.Slot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlapsLocked(slot) {
		return slots.Slot{}, slots.ErrOverlap
	}
	slot = s.withAvailabilityLocked(slot)
	s.slots[slot.ID] = slot
	return slot, nil
}

func (r *SlotRepository) ListByDateRange(_ context.Context, startDate, endDate string) ([]slots.Slot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.slotsInRangeLocked(startDate, endDate), nil
}

func (r *SlotRepository) GetByDateTime(_ context.Context, date string, startMinute int) (slots.Slot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range s.slots {
		if slot.Date == date && slot.StartMinute == startMinute {
			return slot, nil
		}
	}
	return slots.Slot{}, slots.ErrNotFound
}

func (r *SlotRepository) DeleteByDate(_ context.Context, date string) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteDateLocked(date), nil
}

func (r *SlotRepository) ReplaceForDate(_ context.Context, date string, items []slots.Slot) ([]slots.Slot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Only the batch matters: every existing slot on date goes away.
	for i := range items {
		if items[i].Date != date {
			return nil, schedule.ErrInvalidDate
		}
		for j := 0; j < i; j++ {
			if schedule.Overlaps(items[i].Interval(), items[j].Interval()) {
				return nil, slots.ErrOverlap
			}
		}
	}

	s.deleteDateLocked(date)
	created := make([]slots.Slot, 0, len(items))
	for _, item := range items {
		item = s.withAvailabilityLocked(item)
		s.slots[item.ID] = item
		created = append(created, item)
	}
	return created, nil
}

func (r *SlotRepository) Delete(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[id]; !ok {
		return slots.ErrNotFound
	}
	delete(s.slots, id)
	return nil
}

type AppointmentRepository struct {
	store *Store
}

var _ appointments.Repository = (*AppointmentRepository)(nil)

func (r *AppointmentRepository) Reserve(_ context.Context, slotID string, build func(slot slots.Slot, active int) (appointments.Appointment, error)) (appointments.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return appointments.Appointment{}, slots.ErrNotFound
	}

	appt, err := build(slot, s.activeLocked(slot.Date, slot.StartMinute, slot.EndMinute))
	if err != nil {
		return appointments.Appointment{}, err
	}
	s.appointments[appt.ID] = appt
	s.refreshLocked(slot.Date, slot.StartMinute, slot.EndMinute)
	return appt, nil
}

func (r *AppointmentRepository) Transition(_ context.Context, id string, mutate func(*appointments.Appointment) error) (appointments.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.appointments[id]
	if !ok {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	next := current
	if current.Note != nil {
		note := *current.Note
		next.Note = &note
	}
	if err := mutate(&next); err != nil {
		return appointments.Appointment{}, err
	}
	s.appointments[id] = next
	if current.Status.HoldsCapacity() != next.Status.HoldsCapacity() {
		s.refreshLocked(next.Date, next.StartMinute, next.EndMinute)
	}
	return next, nil
}

func (r *AppointmentRepository) Get(_ context.Context, id string) (appointments.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	return appt, nil
}

func (r *AppointmentRepository) List(_ context.Context, filter appointments.ListFilter, limit, offset int64) ([]appointments.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.filterLocked(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.StartMinute != b.StartMinute {
			return a.StartMinute > b.StartMinute
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if offset >= int64(len(matched)) {
		return []appointments.Appointment{}, nil
	}
	end := offset + limit
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}
	return matched[offset:end], nil
}

func (r *AppointmentRepository) Count(_ context.Context, filter appointments.ListFilter) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.filterLocked(filter))), nil
}

func (r *AppointmentRepository) SlotLoads(_ context.Context, startDate, endDate string) ([]appointments.SlotLoad, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.slotsInRangeLocked(startDate, endDate)
	loads := make([]appointments.SlotLoad, 0, len(items))
	for _, slot := range items {
		loads = append(loads, appointments.SlotLoad{
			SlotID:      slot.ID,
			Date:        slot.Date,
			StartMinute: slot.StartMinute,
			EndMinute:   slot.EndMinute,
			Capacity:    slot.Capacity,
			Active:      s.activeLocked(slot.Date, slot.StartMinute, slot.EndMinute),
		})
	}
	return loads, nil
}

func (s *Store) slotsInRangeLocked(startDate, endDate string) []slots.Slot {
	items := make([]slots.Slot, 0)
	for _, slot := range s.slots {
		// DateLayout sorts lexically in calendar order.
		if startDate != "" && slot.Date < startDate {
			continue
		}
		if endDate != "" && slot.Date > endDate {
			continue
		}
		items = append(items, slot)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].StartMinute < items[j].StartMinute
	})
	return items
}

func (s *Store) overlapsLocked(candidate slots.Slot) bool {
	for _, existing := range s.slots {
		if existing.Date == candidate.Date && schedule.Overlaps(existing.Interval(), candidate.Interval()) {
			return true
		}
	}
	return false
}

func (s *Store) deleteDateLocked(date string) int64 {
	var deleted int64
	for id, slot := range s.slots {
		if slot.Date == date {
			delete(s.slots, id)
			deleted++
		}
	}
	return deleted
}

func (s *Store) activeLocked(date string, startMinute, endMinute int) int {
	active := 0
	for _, appt := range s.appointments {
		if appt.Date == date && appt.StartMinute == startMinute && appt.EndMinute == endMinute && appt.Status.HoldsCapacity() {
			active++
		}
	}
	return active
}

func (s *Store) withAvailabilityLocked(slot slots.Slot) slots.Slot {
	slot.IsAvailable = slot.Capacity > s.activeLocked(slot.Date, slot.StartMinute, slot.EndMinute)
	return slot
}

func (s *Store) refreshLocked(date string, startMinute, endMinute int) {
	for id, slot := range s.slots {
		if slot.Date == date && slot.StartMinute == startMinute && slot.EndMinute == endMinute {
			s.slots[id] = s.withAvailabilityLocked(slot)
		}
	}
}

func (s *Store) filterLocked(filter appointments.ListFilter) []appointments.Appointment {
	matched := make([]appointments.Appointment, 0)
	for _, appt := range s.appointments {
		if filter.Status != "" && appt.Status != filter.Status {
			continue
		}
		if filter.StartDate != "" && appt.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && appt.Date > filter.EndDate {
			continue
		}
		if filter.AppointmentID != "" && appt.ID != filter.AppointmentID {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(appt.Email, filter.Email) {
			continue
		}
		matched = append(matched, appt)
	}
	return matched
}
