// Package cache provides a redis-backed TTL cache with explicit
// invalidation. It holds derived read-model data only (document digests);
// everything in it can be rebuilt from postgres at any time, so a miss or an
// eviction is never an error.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Service is a namespaced JSON cache over a redis client.
type Service struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewService creates a cache service from a redis URL and verifies the
// connection.
func NewService(redisURL, prefix string, ttl time.Duration, logger *slog.Logger) (*Service, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Service{client: client, prefix: prefix, ttl: ttl, logger: logger}, nil
}

// NewServiceWithClient creates a cache service from an existing client.
func NewServiceWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (s *Service) key(k string) string {
	return s.prefix + k
}

// Get unmarshals the cached value for key into dest, reporting whether a
// value was present. Redis trouble degrades to a miss: the caller rebuilds
// from the source of truth.
func (s *Service) Get(ctx context.Context, k string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(k)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		s.logger.Warn("cache read failed", "key", k, "error", err)
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached value: %w", err)
	}
	return true, nil
}

// Set stores value under key with the service TTL.
func (s *Service) Set(ctx context.Context, k string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := s.client.Set(ctx, s.key(k), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Invalidate removes the cached value for key. Removing an absent key is not
// an error.
func (s *Service) Invalidate(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying redis client.
func (s *Service) Close() error {
	return s.client.Close()
}
