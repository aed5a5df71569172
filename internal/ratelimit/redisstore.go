package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript implements the atomic trim-old + count + add compound
// operation spec §5 requires: it prunes the sorted set of a key's admission
// timestamps to the window, reads the oldest survivor, and — only if the
// remaining count is still strictly under limit — adds now. Running it as
// a single EVAL makes the whole sequence atomic against concurrent callers
// sharing the same Redis key, which is how spec §9 externalizes the Rate
// Gate across horizontally scaled workers.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local cutoff = now - window_ms

redis.call('ZREMRANGEBYSCORE', key, '-inf', cutoff)
local count = redis.call('ZCARD', key)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')

local admitted = 0
if count < limit then
  redis.call('ZADD', key, now, now .. '-' .. math.random(1, 1e9))
  admitted = 1
end
redis.call('PEXPIRE', key, window_ms)

local oldest_ms = -1
if #oldest == 2 then
  oldest_ms = tonumber(oldest[2])
end
return {admitted, oldest_ms}
`

// RedisStore is the production Store backing: one Redis sorted set per key,
// scored by admission timestamp in milliseconds. This is the "shared
// key-value store" spec §9 calls for so multiple carousel workers draw from
// the same per-credential and per-client-ip budgets.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

// NewRedisStore wraps an existing client. The caller owns the client's
// lifecycle (Close).
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, script: redis.NewScript(slidingWindowScript)}
}

// Admit implements Store via the Lua script above.
func (r *RedisStore) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, time.Time, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	res, err := r.script.Run(ctx, r.client, []string{"ratelimit:" + key}, nowMs, windowMs, limit).Result()
	if err != nil {
		return false, time.Time{}, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, time.Time{}, errUnexpectedReply
	}
	admitted := toInt64(vals[0]) == 1
	oldestMs := toInt64(vals[1])

	var oldest time.Time
	if oldestMs >= 0 {
		oldest = time.UnixMilli(oldestMs)
	}
	return admitted, oldest, nil
}

var errUnexpectedReply = redisReplyError("ratelimit: unexpected script reply shape")

type redisReplyError string

func (e redisReplyError) Error() string { return string(e) }

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
