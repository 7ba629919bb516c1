package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is the thin durable key-value contract the redeem state machine
// relies on. SetIfAbsent on a single key is the only atomicity guarantee;
// there are no transactions across keys.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key unconditionally.
	Set(ctx context.Context, key string, value []byte) error

	// SetIfAbsent writes value only if key does not exist. Returns true if
	// the write happened, false if the key was already claimed.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// Expire sets a time-to-live on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
