// Package redisx backs persistence with Redis so several processes (or
// devices of one profile) share the same engagement key space.
package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abelbrown/reelfeed/internal/persist"
)

// Open connects to addr. The ping result is returned so callers can fall
// back to a local store when Redis is down.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// KV stores each namespace as one Redis string under keyPrefix.
type KV struct {
	rdb       *redis.Client
	keyPrefix string
}

var _ persist.KV = (*KV)(nil)

// NewKV wraps rdb. keyPrefix defaults to "reelfeed:".
func NewKV(rdb *redis.Client, keyPrefix string) *KV {
	if keyPrefix == "" {
		keyPrefix = "reelfeed:"
	}
	return &KV{rdb: rdb, keyPrefix: keyPrefix}
}

func (k *KV) key(key string) string { return k.keyPrefix + key }

// Get returns the stored bytes or persist.ErrNotFound.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := k.rdb.Get(ctx, k.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return b, nil
}

// Set replaces the value; SET is atomic so no partial value is ever visible.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.rdb.Set(ctx, k.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}
