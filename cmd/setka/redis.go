package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/valstan/setka/internal/ratelimit"
)

// newRedisRateStore builds a ratelimit.RedisStore against addr, the
// externalized sliding-window backing spec §9 requires once workers scale
// horizontally.
func newRedisRateStore(addr string) *ratelimit.RedisStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return ratelimit.NewRedisStore(client)
}
