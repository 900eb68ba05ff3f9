package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each key as a redis string. Compare-and-swap uses
// WATCH/MULTI so concurrent writers from other processes are detected.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend parses a redis:// URL and verifies the server is reachable
func NewRedisBackend(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

// NewRedisBackendFromClient wraps an existing client
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Client exposes the underlying client so a lock can share the connection
func (b *RedisBackend) Client() *redis.Client {
	return b.client
}

func (b *RedisBackend) Get(ctx context.Context, key string) (Blob, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return Blob{Data: data, Version: Checksum(data)}, nil
}

func (b *RedisBackend) Put(ctx context.Context, key string, data []byte, expected string) (string, error) {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		if !versionMatches(expected, Checksum(current), exists) {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	err := b.client.Watch(ctx, txf, key)
	if errors.Is(err, ErrVersionConflict) || errors.Is(err, redis.TxFailedErr) {
		return "", ErrVersionConflict
	}
	if err != nil {
		return "", fmt.Errorf("failed to put %s: %w", key, err)
	}

	return Checksum(data), nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
