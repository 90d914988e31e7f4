package otp

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// MemoryStore is a single process store for development and tests
type MemoryStore struct {
	cache *ttlcache.Cache
}

func NewMemoryStore() *MemoryStore {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)

	return &MemoryStore{cache: c}
}

func (s *MemoryStore) Get(_ context.Context, email string) (*Record, error) {
	v, err := s.cache.Get(email)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	r := v.(Record)
	return &r, nil
}

func (s *MemoryStore) Put(_ context.Context, r *Record) error {
	return s.cache.SetWithTTL(r.Email, *r, backstop(r))
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	err := s.cache.Remove(email)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return nil
	}

	return err
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64

	for _, k := range s.cache.GetKeys() {
		r, err := s.Get(ctx, k)
		if err != nil {
			continue
		}

		if r.ExpiresAt.Before(now) {
			if err := s.Delete(ctx, k); err != nil {
				return n, err
			}
			n++
		}
	}

	return n, nil
}

func (s *MemoryStore) Close() error {
	return s.cache.Close()
}
