package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps values in process memory. Used by tests and by the
// "memory" storage driver for throwaway runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.data[key]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return Blob{Data: slices.Clone(data), Version: Checksum(data)}, nil
}

func (b *MemoryBackend) Put(ctx context.Context, key string, data []byte, expected string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.data[key]
	if !versionMatches(expected, Checksum(current), exists) {
		return "", ErrVersionConflict
	}

	b.data[key] = slices.Clone(data)
	return Checksum(data), nil
}

// Set stores raw bytes under key, bypassing version checks. Lets tests plant
// corrupted data.
func (b *MemoryBackend) Set(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = slices.Clone(data)
}

func (b *MemoryBackend) Close() error { return nil }
