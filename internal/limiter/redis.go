package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCmds is the subset of *redis.Client the limiter needs.
type redisCmds interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis is a Redis-backed limiter: failures are counted in a window key,
// reaching maxFails sets a block key that expires after blockFor.
type Redis struct {
	rdb      redisCmds
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

// NewRedis constructs a Redis-backed limiter.
func NewRedis(rdb redisCmds, window time.Duration, maxFails int, blockFor time.Duration) *Redis {
	return &Redis{rdb: rdb, window: window, maxFails: maxFails, blockFor: blockFor}
}

func keys(username string, ipHash []byte) (fails, block string) {
	suffix := username + ":" + hex.EncodeToString(ipHash)
	return "login:fails:" + suffix, "login:block:" + suffix
}

// Allow reports whether the (username, ip) pair is currently unblocked.
func (l *Redis) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	_, block := keys(username, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	// -2: no key, -1: no expiry (never written by us).
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Success resets counters for (username, ip).
func (l *Redis) Success(ctx context.Context, username string, ipHash []byte) error {
	fails, block := keys(username, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

// Failure counts a failed attempt and blocks once maxFails is reached within the window.
func (l *Redis) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := keys(username, ipHash)
	n, err := l.rdb.Incr(ctx, fails).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, fails, l.window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n < int64(l.maxFails) {
		return false, 0, nil
	}
	if err := l.rdb.Set(ctx, block, n, l.blockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.rdb.Del(ctx, fails).Err(); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
