package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "otp:"

// RedisStore keeps records as JSON values. Keys carry a TTL slightly past
// the record expiry so abandoned codes disappear without a sweep.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, email string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, redisPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode otp record, %w", err)
	}

	return &r, nil
}

func (s *RedisStore) Put(ctx context.Context, r *Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode otp record, %w", err)
	}

	return s.rdb.Set(ctx, redisPrefix+r.Email, raw, backstop(r)).Err()
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, redisPrefix+email).Err()
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64

	iter := s.rdb.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		r, err := s.Get(ctx, key[len(redisPrefix):])
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return n, err
		}

		if r.ExpiresAt.Before(now) {
			if err := s.rdb.Del(ctx, key).Err(); err != nil {
				return n, err
			}
			n++
		}
	}

	return n, iter.Err()
}
