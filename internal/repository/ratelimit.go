package repository

import (
	"context"
	"fmt"
	"time"

	"cartographer-notify/pkg/cache"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	_rateKeyPrefix = "rate"
	_rateWindow    = time.Hour
)

// rateLimitScript is a sliding-window counter over a sorted set: trim
// entries older than the window, admit and record if under the limit.
// Running as a Lua script makes increment-and-check atomic, so two
// near-simultaneous events cannot both pass a limit that should have
// admitted only one.
var rateLimitScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return 1
`)

// RateLimitRepository gates delivery volume per (user, network) against
// max_notifications_per_hour. State lives in Redis so every process
// sweeping or resolving events shares one counter.
type RateLimitRepository struct {
	rdb *goredis.Client
}

func NewRateLimitRepository(rdb *goredis.Client) *RateLimitRepository {
	return &RateLimitRepository{rdb: rdb}
}

// Allow atomically counts the delivery against the user's sliding 1h
// window and reports whether it is admitted. Counting happens after
// quiet-hours suppression, so suppressed notifications never spend
// budget.
func (r *RateLimitRepository) Allow(ctx context.Context, userID, networkID string, limit int) (bool, error) {
	const op = "repository.RateLimitRepository.Allow"

	if limit <= 0 {
		return true, nil
	}

	key := cache.Key(_rateKeyPrefix, userID, networkID)
	now := time.Now().UnixMilli()

	res, err := rateLimitScript.Run(ctx, r.rdb,
		[]string{key},
		now, _rateWindow.Milliseconds(), limit, uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: run script: %w", op, err)
	}
	return res == 1, nil
}
