package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lms/logger"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Cache stores serialized grade projections. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

func studentPrefix(studentID uint) string {
	return fmt.Sprintf("grades:student:%d:", studentID)
}

func courseKey(studentID, courseID uint) string {
	return fmt.Sprintf("%scourse:%d", studentPrefix(studentID), courseID)
}

func summaryKey(studentID uint) string {
	return studentPrefix(studentID) + "summary"
}

func competencyKey(studentID uint) string {
	return studentPrefix(studentID) + "competency"
}

type RedisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisCache connects and pings; callers fall back to memory on error.
func NewRedisCache(addr, password string, baseLog *logger.Logger) (*RedisCache, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &RedisCache{log: baseLog.With("service", "RedisGradeCache"), rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return raw, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Wrap(c.rdb.Set(ctx, key, value, ttl).Err(), "redis set")
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return errors.Wrap(err, "redis scan")
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "redis del")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

// OpenCache returns a redis cache when addr is set and reachable, otherwise a
// process-local one.
func OpenCache(addr, password string, baseLog *logger.Logger) Cache {
	if strings.TrimSpace(addr) == "" {
		return NewMemoryCache(nil)
	}
	rc, err := NewRedisCache(addr, password, baseLog)
	if err != nil {
		baseLog.Warn("Redis unavailable, using in-memory grade cache", "addr", addr, "error", err)
		return NewMemoryCache(nil)
	}
	return rc
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is the single-process cache used when redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

func NewMemoryCache(clock func() time.Time) *MemoryCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCache{entries: map[string]memoryEntry{}, clock: clock}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.clock().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expires: c.clock().Add(ttl)}
	return nil
}

func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}
