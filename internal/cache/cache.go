package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/avolkov/sonet/internal/config"
	appLogger "github.com/avolkov/sonet/internal/logger"
)

// Service defines the typed operations the feed engine needs from the cache
// store. Each operation is atomic with respect to other operations on the
// same key; no multi-key transactions are assumed. Any call may fail with a
// transient error, in which case callers degrade per the read/write path
// rules rather than retry here.
type Service interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error

	LPush(ctx context.Context, key, value string) error
	RPush(ctx context.Context, key, value string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRem(ctx context.Context, key, value string) error
	LLen(ctx context.Context, key string) (int64, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HDel(ctx context.Context, key string, fields ...string) error
}

// Init connects the Redis client from the feed cache URL
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	appLogger.Info("Redis connection established", zap.String("addr", opts.Addr))

	return client, nil
}

// HealthCheck checks if Redis is healthy
func HealthCheck(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// redisService implements Service on a go-redis client
type redisService struct {
	client *redis.Client
}

// NewService creates a cache service backed by the given client
func NewService(client *redis.Client) Service {
	return &redisService{client: client}
}

func (s *redisService) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return count > 0, nil
}

func (s *redisService) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

func (s *redisService) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %v: %w", keys, err)
	}
	appLogger.Debug("Cache keys deleted", zap.Strings("keys", keys))
	return nil
}

func (s *redisService) LPush(ctx context.Context, key, value string) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("failed to lpush key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) RPush(ctx context.Context, key, value string) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("failed to rpush key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	values, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lrange key %s: %w", key, err)
	}
	return values, nil
}

func (s *redisService) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("failed to ltrim key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) LRem(ctx context.Context, key, value string) error {
	if err := s.client.LRem(ctx, key, 0, value).Err(); err != nil {
		return fmt.Errorf("failed to lrem key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to llen key %s: %w", key, err)
	}
	return n, nil
}

func (s *redisService) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("failed to sadd key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("failed to srem key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to smembers key %s: %w", key, err)
	}
	return members, nil
}

func (s *redisService) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to sismember key %s: %w", key, err)
	}
	return ok, nil
}

func (s *redisService) HSet(ctx context.Context, key, field, value string) error {
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("failed to hset key %s: %w", key, err)
	}
	return nil
}

func (s *redisService) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to hget key %s: %w", key, err)
	}
	return val, nil
}

func (s *redisService) HDel(ctx context.Context, key string, fields ...string) error {
	if err := s.client.HDel(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("failed to hdel key %s: %w", key, err)
	}
	return nil
}
