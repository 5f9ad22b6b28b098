package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the offline cache keys.
const DefaultRedisPrefix = "offline:"

// RedisStorage keeps one hash per cache name, field = request URL, value =
// JSON encoded Entry. The set of cache names lives under <prefix>caches.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) namesKey() string { return s.prefix + "caches" }

func (s *RedisStorage) cacheKey(name string) string { return s.prefix + "cache:" + name }

func (s *RedisStorage) Open(ctx context.Context, name string) (Cache, error) {
	if err := s.client.SAdd(ctx, s.namesKey(), name).Err(); err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return &redisCache{client: s.client, key: s.cacheKey(name)}, nil
}

func (s *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	return names, nil
}

func (s *RedisStorage) Delete(ctx context.Context, name string) (bool, error) {
	if err := s.client.Del(ctx, s.cacheKey(name)).Err(); err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	removed, err := s.client.SRem(ctx, s.namesKey(), name).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	return removed > 0, nil
}

type redisCache struct {
	client *redis.Client
	key    string
}

func (c *redisCache) Match(ctx context.Context, url string) (Entry, bool, error) {
	data, err := c.client.HGet(ctx, c.key, url).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Unreadable entries are dropped so the next fetch can replace them.
		c.client.HDel(ctx, c.key, url)
		return Entry{}, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return e, true, nil
}

func (c *redisCache) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.HSet(ctx, c.key, e.URL, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}
