package slots

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("slot not found")
	ErrOverlap         = errors.New("overlapping slot exists")
	ErrInvalidCapacity = errors.New("capacity must be zero or greater")
	ErrInvalidRange    = errors.New("start date must not be after end date")
)

type Repository interface {
	Create(ctx context.Context, slot Slot) (Slot, error)
	ListByDateRange(ctx context.Context, startDate, endDate string) ([]Slot, error)
	GetByDateTime(ctx context.Context, date string, startMinute int) (Slot, error)
	DeleteByDate(ctx context.Context, date string) (int64, error)
	ReplaceForDate(ctx context.Context, date string, slots []Slot) ([]Slot, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo     Repository
	cache    cache.Cache
	location *time.Location
	log      *slog.Logger
}

func NewService(repo Repository, cacheStore cache.Cache, location *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cacheStore,
		location: location,
		log:      log,
	}
}

func (s *Service) CreateSlot(ctx context.Context, date string, spec Spec) (Slot, error) {
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return Slot{}, err
	}
	slot, err := s.buildSlot(date, spec)
	if err != nil {
		return Slot{}, err
	}

	existing, err := s.repo.ListByDateRange(ctx, date, date)
	if err != nil {
		return Slot{}, err
	}
	if _, ok := schedule.FindOverlap(slot.Interval(), intervals(existing)); ok {
		return Slot{}, ErrOverlap
	}

	// The storage layer rejects overlaps that slip past the scan above.
	created, err := s.repo.Create(ctx, slot)
	if err != nil {
		return Slot{}, err
	}
	s.invalidateAvailability(ctx)
	return created, nil
}

func (s *Service) GetAllSlotsForDate(ctx context.Context, date string) ([]Slot, error) {
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return nil, err
	}
	return s.repo.ListByDateRange(ctx, date, date)
}

// GetAllSlotsForDateRange treats an empty bound as unbounded on that side.
func (s *Service) GetAllSlotsForDateRange(ctx context.Context, startDate, endDate string) ([]Slot, int, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)

	var start, end time.Time
	var err error
	if startDate != "" {
		if start, err = schedule.ParseDate(startDate, s.location); err != nil {
			return nil, 0, err
		}
	}
	if endDate != "" {
		if end, err = schedule.ParseDate(endDate, s.location); err != nil {
			return nil, 0, err
		}
	}
	if startDate != "" && endDate != "" && start.After(end) {
		return nil, 0, ErrInvalidRange
	}

	items, err := s.repo.ListByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, 0, err
	}
	return items, len(items), nil
}

func (s *Service) EmptySlotsForDate(ctx context.Context, date string) (int64, error) {
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	s.invalidateAvailability(ctx)
	return deleted, nil
}

func (s *Service) GetSlot(ctx context.Context, date, clock string) (Slot, error) {
	if _, err := schedule.ParseDateTime(date, clock, s.location); err != nil {
		return Slot{}, err
	}
	startMinute, err := schedule.ParseClockToMinutes(clock)
	if err != nil {
		return Slot{}, err
	}
	return s.repo.GetByDateTime(ctx, date, startMinute)
}

// ReplaceSlotsForDate swaps every slot on date for the given specs in one
// storage transaction. On any failure the date keeps its previous slots.
func (s *Service) ReplaceSlotsForDate(ctx context.Context, date string, specs []Spec) ([]Slot, error) {
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return nil, err
	}

	built := make([]Slot, 0, len(specs))
	for _, spec := range specs {
		slot, err := s.buildSlot(date, spec)
		if err != nil {
			return nil, err
		}
		built = append(built, slot)
	}
	if schedule.HasInternalOverlap(intervals(built)) {
		return nil, ErrOverlap
	}

	created, err := s.repo.ReplaceForDate(ctx, date, built)
	if err != nil {
		return nil, err
	}
	s.invalidateAvailability(ctx)
	return created, nil
}

func (s *Service) DeleteSlot(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateAvailability(ctx)
	return nil
}

func (s *Service) buildSlot(date string, spec Spec) (Slot, error) {
	interval, err := schedule.ClockRange(spec.StartTime, spec.EndTime)
	if err != nil {
		return Slot{}, err
	}
	if spec.Capacity < 0 {
		return Slot{}, ErrInvalidCapacity
	}
	slot := Slot{
		ID:          uuid.NewString(),
		Date:        date,
		Capacity:    spec.Capacity,
		IsAvailable: spec.Capacity > 0,
		CreatedAt:   time.Now().In(s.location),
		StartMinute: interval.Start,
		EndMinute:   interval.End,
	}
	return slot.WithClocks(), nil
}

func (s *Service) invalidateAvailability(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cache.AvailabilityPrefix); err != nil && s.log != nil {
		s.log.Warn("slots: availability cache invalidation failed", slog.String("error", err.Error()))
	}
}

func intervals(items []Slot) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(items))
	for _, item := range items {
		out = append(out, item.Interval())
	}
	return out
}
