package templates

import (
	"context"
	"encoding/json"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
)

const (
	keyPrefix = "slot_template:"
	indexKey  = "slot_template:index"
)

// Store keeps one JSON entry per weekday without expiry and records every
// written day in an index set so listing never depends on key scans.
type Store struct {
	cache cache.Cache
}

func NewStore(c cache.Cache) *Store {
	return &Store{cache: c}
}

func Key(day Day) string {
	return keyPrefix + string(day)
}

// Get returns ok=false for a missing or unreadable entry.
func (s *Store) Get(ctx context.Context, day Day) (SlotTemplate, bool, error) {
	raw, ok, err := s.cache.Get(ctx, Key(day))
	if err != nil {
		return SlotTemplate{}, false, err
	}
	if !ok {
		return SlotTemplate{}, false, nil
	}
	var tpl SlotTemplate
	if err := json.Unmarshal(raw, &tpl); err != nil || tpl.Day != day {
		return SlotTemplate{}, false, nil
	}
	if tpl.Slots == nil {
		tpl.Slots = []TemplateSlot{}
	}
	return tpl, true, nil
}

func (s *Store) Put(ctx context.Context, tpl SlotTemplate) error {
	payload, err := json.Marshal(tpl)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, Key(tpl.Day), payload, 0); err != nil {
		return err
	}
	return s.cache.AddToSet(ctx, indexKey, string(tpl.Day))
}

func (s *Store) IndexedDays(ctx context.Context) ([]Day, error) {
	members, err := s.cache.SetMembers(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	days := make([]Day, 0, len(members))
	for _, member := range members {
		day, err := ParseDay(member)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	return days, nil
}
