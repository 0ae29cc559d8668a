package cache

import (
	"context"
	"time"
)

// AvailabilityPrefix namespaces cached availability payloads so every slot or
// appointment mutation can drop them in one call.
const AvailabilityPrefix = "availability:"

// Cache is the key-value store shared by templates, availability and sessions.
// A zero ttl means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	AddToSet(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}
