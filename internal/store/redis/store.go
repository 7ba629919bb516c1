package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gib-ens/gasless-registrar/internal/store"
)

var _ store.Store = (*redisStore)(nil)

type redisStore struct {
	client *goredis.Client
}

// NewStore creates a Redis-backed key-value store. SetIfAbsent maps to
// SETNX, which provides the claim-on-absent atomicity the redeem state
// machine depends on.
func NewStore(client *goredis.Client) store.Store {
	return &redisStore{client: client}
}

func (r *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return val, nil
}

func (r *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

func (r *redisStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis: setnx %s: %w", key, err)
	}
	return ok, nil
}

func (r *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis: expire %s: %w", key, err)
	}
	return nil
}
