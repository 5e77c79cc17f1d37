package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// RedisStore is a RemoteStore backed by redis. Every key is namespaced with
// prefix so Clear never touches foreign keys.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

var _ RemoteStore = (*RedisStore)(nil)

// NewRedisStore connects lazily; call Ping to verify connectivity.
func NewRedisStore(opts *redis.Options, prefix string) (*RedisStore, error) {
	if prefix == "" {
		return nil, ErrInvalidPrefix
	}
	return &RedisStore{
		rdb:    redis.NewClient(opts),
		prefix: prefix,
	}, nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

// Get returns (pair, false, nil) when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) (model.ScorePair, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ScorePair{}, false, nil
	}
	if err != nil {
		return model.ScorePair{}, false, fmt.Errorf("failed to read score from Redis: %w", err)
	}

	var pair model.ScorePair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return model.ScorePair{}, false, fmt.Errorf("failed to decode cached score: %w", err)
	}
	return pair, true, nil
}

// Set writes a score with the given expiry. Non-positive ttl is a no-op.
func (s *RedisStore) Set(ctx context.Context, key string, pair model.ScorePair, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode score: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write score to Redis: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete scores from Redis: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan scores in Redis: %w", err)
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete scores from Redis: %w", err)
		}
	}
	return nil
}
