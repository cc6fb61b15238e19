package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailyLimiter enforces the daily send cap across processes with an atomic
// Redis check-and-increment. A plain GET → check → INCR sequence would let
// two workers both pass the check at the cap boundary.
type DailyLimiter struct {
	redis  *redis.Client
	prefix string
	script *redis.Script
	now    func() time.Time
}

const dailyLimitLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > limit then
    return {0, current}
end

local updated = redis.call("INCR", key)
if updated == 1 then
    redis.call("EXPIRE", key, ttl)
end
return {1, updated}
`

// NewDailyLimiter builds a limiter; prefix namespaces the counter keys so
// several installations can share one Redis.
func NewDailyLimiter(client *redis.Client, prefix string) *DailyLimiter {
	if prefix == "" {
		prefix = "outreach"
	}
	return &DailyLimiter{
		redis:  client,
		prefix: prefix,
		script: redis.NewScript(dailyLimitLuaScript),
		now:    time.Now,
	}
}

func (l *DailyLimiter) key() string {
	return fmt.Sprintf("%s:daily:%s", l.prefix, l.now().Format("2006-01-02"))
}

// Allow reserves one send slot under limit. It returns false when the cap
// for the current day is already spent.
func (l *DailyLimiter) Allow(ctx context.Context, limit int) (bool, error) {
	// The key expires well past midnight; the date in the key is what
	// actually rolls the counter over.
	result, err := l.script.Run(ctx, l.redis, []string{l.key()}, limit, int((48 * time.Hour).Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("daily limit script: %w", err)
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 1 {
		return false, fmt.Errorf("daily limit script: unexpected reply %v", result)
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return false, fmt.Errorf("daily limit script: unexpected reply %v", result)
	}
	return allowed == 1, nil
}

// Used returns today's reserved count.
func (l *DailyLimiter) Used(ctx context.Context) (int, error) {
	n, err := l.redis.Get(ctx, l.key()).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daily counter: %w", err)
	}
	return n, nil
}
