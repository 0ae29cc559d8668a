package auth

import (
	"context"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
)

const sessionPrefix = "refresh_session:"

// Sessions tracks live refresh tokens by jti. A refresh token is valid only
// while its jti is present, and consuming it removes it.
type Sessions struct {
	cache cache.Cache
}

func NewSessions(c cache.Cache) *Sessions {
	return &Sessions{cache: c}
}

func (s *Sessions) Save(ctx context.Context, jti, subject string, ttl time.Duration) error {
	return s.cache.Set(ctx, sessionPrefix+jti, []byte(subject), ttl)
}

// Consume reports whether jti was live for subject and revokes it.
func (s *Sessions) Consume(ctx context.Context, jti, subject string) (bool, error) {
	stored, ok, err := s.cache.Take(ctx, sessionPrefix+jti)
	if err != nil || !ok {
		return false, err
	}
	return string(stored) == subject, nil
}

func (s *Sessions) Revoke(ctx context.Context, jti string) error {
	return s.cache.Delete(ctx, sessionPrefix+jti)
}
