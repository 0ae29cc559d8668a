package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/httpx"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrSlotFull          = errors.New("slot is fully booked")
	ErrSlotInPast        = errors.New("slot is in the past")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
)

// SlotResolver turns a user-facing date and start time into a concrete slot.
type SlotResolver interface {
	GetSlot(ctx context.Context, date, clock string) (slots.Slot, error)
}

// Repository persists appointments. Reserve and Transition run their
// callbacks while holding the relevant row lock.
type Repository interface {
	Reserve(ctx context.Context, slotID string, build func(slot slots.Slot, active int) (Appointment, error)) (Appointment, error)
	Transition(ctx context.Context, id string, mutate func(*Appointment) error) (Appointment, error)
	Get(ctx context.Context, id string) (Appointment, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Appointment, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	SlotLoads(ctx context.Context, startDate, endDate string) ([]SlotLoad, error)
}

type Config struct {
	Location         *time.Location
	CacheTTL         time.Duration
	AvailabilityDays int
}

type Service struct {
	repo  Repository
	slots SlotResolver
	cache cache.Cache
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

func NewService(repo Repository, resolver SlotResolver, cacheStore cache.Cache, cfg Config, log *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.AvailabilityDays <= 0 {
		cfg.AvailabilityDays = 30
	}
	return &Service{
		repo:  repo,
		slots: resolver,
		cache: cacheStore,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// SetClock replaces the time source used for past-slot checks and timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateAppointment is the public self-service path: it resolves the slot by
// date and time and records a PENDING request against it.
func (s *Service) CreateAppointment(ctx context.Context, req BookingRequest) (Appointment, error) {
	slot, err := s.slots.GetSlot(ctx, req.Date, req.Time)
	if err != nil {
		return Appointment{}, err
	}
	past, err := schedule.IsSlotPast(slot.Date, slot.StartTime, s.cfg.Location, s.now())
	if err != nil {
		return Appointment{}, err
	}
	if past {
		return Appointment{}, ErrSlotInPast
	}
	return s.commit(ctx, slot, req, StatusPending)
}

// BookDirect creates an already confirmed appointment on behalf of an admin.
func (s *Service) BookDirect(ctx context.Context, req BookingRequest) (Appointment, error) {
	slot, err := s.slots.GetSlot(ctx, req.Date, req.Time)
	if err != nil {
		return Appointment{}, err
	}
	return s.commit(ctx, slot, req, StatusBooked)
}

func (s *Service) commit(ctx context.Context, slot slots.Slot, req BookingRequest, status Status) (Appointment, error) {
	appt, err := s.repo.Reserve(ctx, slot.ID, func(locked slots.Slot, active int) (Appointment, error) {
		if active >= locked.Capacity {
			return Appointment{}, ErrSlotFull
		}
		now := s.now().In(s.cfg.Location)
		return Appointment{
			ID:          uuid.NewString(),
			Date:        locked.Date,
			StartMinute: locked.StartMinute,
			EndMinute:   locked.EndMinute,
			Name:        strings.TrimSpace(req.Name),
			Email:       normalizeEmail(req.Email),
			Phone:       strings.TrimSpace(req.Phone),
			Note:        normalizeNote(req.Note),
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}.WithClocks(), nil
	})
	if err != nil {
		return Appointment{}, err
	}
	s.invalidateAvailability(ctx)
	return appt, nil
}

func (s *Service) BookAppointment(ctx context.Context, id string) (Appointment, error) {
	return s.transition(ctx, id, StatusBooked)
}

// CancelAppointment fails with ErrInvalidTransition when the appointment is
// already cancelled or completed.
func (s *Service) CancelAppointment(ctx context.Context, id string) (Appointment, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id string, to Status) (Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Appointment{}, ErrNotFound
	}
	appt, err := s.repo.Transition(ctx, id, func(a *Appointment) error {
		if !CanTransition(a.Status, to) {
			return ErrInvalidTransition
		}
		a.Status = to
		a.UpdatedAt = s.now().In(s.cfg.Location)
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	s.invalidateAvailability(ctx)
	return appt, nil
}

// UpdateAppointment patches contact fields and optionally the status. A
// status equal to the current one is left alone; any other value must be a
// legal transition.
func (s *Service) UpdateAppointment(ctx context.Context, id string, req UpdateRequest) (Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Appointment{}, ErrNotFound
	}

	var target Status
	if req.Status != nil {
		parsed, ok := ParseStatus(*req.Status)
		if !ok {
			return Appointment{}, ErrInvalidStatus
		}
		target = parsed
	}

	statusChanged := false
	appt, err := s.repo.Transition(ctx, id, func(a *Appointment) error {
		if target != "" && target != a.Status {
			if !CanTransition(a.Status, target) {
				return ErrInvalidTransition
			}
			a.Status = target
			statusChanged = true
		}
		if req.Name != nil {
			a.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			a.Email = normalizeEmail(*req.Email)
		}
		if req.Phone != nil {
			a.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Note != nil {
			a.Note = normalizeNote(req.Note)
		}
		a.UpdatedAt = s.now().In(s.cfg.Location)
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	if statusChanged {
		s.invalidateAvailability(ctx)
	}
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Appointment{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetAllAppointments(ctx context.Context, filter ListFilter, page httpx.Page) ([]Appointment, int64, error) {
	if filter.Status != "" {
		if _, ok := ParseStatus(string(filter.Status)); !ok {
			return nil, 0, ErrInvalidStatus
		}
	}
	if err := s.validateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, 0, err
	}
	filter.Email = normalizeEmail(filter.Email)
	filter.AppointmentID = strings.TrimSpace(filter.AppointmentID)
	if filter.AppointmentID != "" {
		if _, err := uuid.Parse(filter.AppointmentID); err != nil {
			return []Appointment{}, 0, nil
		}
	}

	items, err := s.repo.List(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetAvailability reports, per date, every slot with its capacity, the
// appointments holding it and whether it can still be booked. Bounds default
// to today and the configured number of days ahead.
func (s *Service) GetAvailability(ctx context.Context, startDate, endDate string) (Availability, error) {
	today := s.now().In(s.cfg.Location)
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" {
		startDate = today.Format(schedule.DateLayout)
	}
	if endDate == "" {
		start, err := schedule.ParseDate(startDate, s.cfg.Location)
		if err != nil {
			return Availability{}, err
		}
		endDate = start.AddDate(0, 0, s.cfg.AvailabilityDays-1).Format(schedule.DateLayout)
	}
	if err := s.validateRange(startDate, endDate); err != nil {
		return Availability{}, err
	}

	cacheKey := cache.AvailabilityPrefix + startDate + ":" + endDate
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			var out Availability
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		}
	}

	loads, err := s.repo.SlotLoads(ctx, startDate, endDate)
	if err != nil {
		return Availability{}, err
	}

	out := Availability{StartDate: startDate, EndDate: endDate, Days: make([]DayAvailability, 0)}
	for _, load := range loads {
		if len(out.Days) == 0 || out.Days[len(out.Days)-1].Date != load.Date {
			out.Days = append(out.Days, DayAvailability{Date: load.Date, Slots: make([]SlotAvailability, 0)})
		}
		remaining := load.Capacity - load.Active
		if remaining < 0 {
			remaining = 0
		}
		startClock := schedule.MinutesToClock(load.StartMinute)
		past, err := schedule.IsSlotPast(load.Date, startClock, s.cfg.Location, today)
		if err != nil {
			return Availability{}, err
		}
		day := &out.Days[len(out.Days)-1]
		day.Slots = append(day.Slots, SlotAvailability{
			SlotID:      load.SlotID,
			StartTime:   startClock,
			EndTime:     schedule.MinutesToClock(load.EndMinute),
			Capacity:    load.Capacity,
			Booked:      load.Active,
			Remaining:   remaining,
			IsAvailable: remaining > 0 && !past,
		})
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if payload, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL); err != nil && s.log != nil {
				s.log.Warn("appointments: availability cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return out, nil
}

func (s *Service) validateRange(startDate, endDate string) error {
	var start, end time.Time
	var err error
	if startDate != "" {
		if start, err = schedule.ParseDate(startDate, s.cfg.Location); err != nil {
			return err
		}
	}
	if endDate != "" {
		if end, err = schedule.ParseDate(endDate, s.cfg.Location); err != nil {
			return err
		}
	}
	if startDate != "" && endDate != "" && start.After(end) {
		return slots.ErrInvalidRange
	}
	return nil
}

func (s *Service) invalidateAvailability(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cache.AvailabilityPrefix); err != nil && s.log != nil {
		s.log.Warn("appointments: availability cache invalidation failed", slog.String("error", err.Error()))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
