package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisRateLimiter shares its fixed windows across every API instance.
type RedisRateLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	log    *slog.Logger
}

func NewRedisRateLimiter(client redis.Scripter, limit int, window time.Duration, prefix string, log *slog.Logger) *RedisRateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ratelimit"
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: prefix, log: log}
}

// Middleware fails open: a Redis error lets the request through.
func (rl *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := rl.incr(r.Context(), rl.prefix+":"+rateKey(r))
		if err != nil {
			rl.log.Warn("rate limit: redis error", slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}
		if count > int64(rl.limit) {
			writeRateLimited(w, rl.window)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RedisRateLimiter) incr(ctx context.Context, key string) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, rl.client, []string{key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected rate limit result %T", res)
	}
}
