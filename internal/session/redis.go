package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:v1:"

// RedisProvider keeps each session as one Redis hash that expires after ttl
// without writes.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProvider builds a Redis-backed session provider.
func NewRedisProvider(client *redis.Client, ttl time.Duration) *RedisProvider {
	return &RedisProvider{client: client, ttl: ttl}
}

// Open returns the store for session id. It does not touch Redis.
func (p *RedisProvider) Open(id string) Store {
	return &redisStore{client: p.client, key: redisKeyPrefix + id, ttl: p.ttl}
}

// Destroy drops every key of the session.
func (p *RedisProvider) Destroy(ctx context.Context, id string) error {
	return p.client.Del(ctx, redisKeyPrefix+id).Err()
}

type redisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *redisStore) Get(ctx context.Context, field string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, field string, value []byte) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, field, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) Delete(ctx context.Context, field string) error {
	return s.client.HDel(ctx, s.key, field).Err()
}
