package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	redisWrapper "github.com/memofn/evalstore/common/redis"
)

// RedisBackend stores objects as Redis string values under cas:<key>.
// Values are held fully in memory on both write and read, so this
// backend suits small deployments and benchmarks, not multi-gigabyte
// payloads.
type RedisBackend struct {
	redis *redisWrapper.Client
}

// NewRedisBackend creates a Redis-backed object store.
func NewRedisBackend(client *redisWrapper.Client) *RedisBackend {
	return &RedisBackend{redis: client}
}

func casKey(key string) string {
	return fmt.Sprintf("cas:%s", key)
}

// Put reads body to completion and stores it with no expiry.
func (b *RedisBackend) Put(ctx context.Context, key string, body io.Reader, length int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}

	if err := b.redis.SetBytes(ctx, casKey(key), data, 0); err != nil {
		return fmt.Errorf("failed to store object %s: %w", key, err)
	}

	return nil
}

// Get retrieves an object.
func (b *RedisBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := b.redis.GetBytes(ctx, casKey(key))
	if err != nil {
		if errors.Is(err, redisWrapper.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}
