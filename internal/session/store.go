package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// redisKV is the subset of *redis.Client the store needs.
type redisKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions as session:<sid> -> user id with a TTL.
type RedisStore struct{ rdb redisKV }

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(rdb redisKV) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Save(ctx context.Context, sid string, userID int64, ttl time.Duration) error {
	return s.rdb.Set(ctx, keyPrefix+sid, strconv.FormatInt(userID, 10), ttl).Err()
}

func (s *RedisStore) Lookup(ctx context.Context, sid string) (int64, error) {
	v, err := s.rdb.Get(ctx, keyPrefix+sid).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ErrNoSession
	}
	return id, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, keyPrefix+sid).Err()
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	userID  int64
	expires time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, sid string, userID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.m {
		if !e.expires.After(now) {
			delete(s.m, k)
		}
	}
	s.m[sid] = memEntry{userID: userID, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, sid string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[sid]
	if !ok || !e.expires.After(s.now()) {
		return 0, ErrNoSession
	}
	return e.userID, nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sid)
	return nil
}
