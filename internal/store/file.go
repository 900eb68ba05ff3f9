package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileBackend stores each key as a JSON file in a directory on the local
// device. Writes go to a temp file that is renamed into place, so readers
// never observe a half-written collection. Version checks are serialized
// within this process only.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend creates the directory if needed and returns a FileBackend
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (b *FileBackend) Get(ctx context.Context, key string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return Blob{Data: data, Version: Checksum(data)}, nil
}

func (b *FileBackend) Put(ctx context.Context, key string, data []byte, expected string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.path(key)

	current, err := os.ReadFile(target)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !versionMatches(expected, Checksum(current), exists) {
		return "", ErrVersionConflict
	}

	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", key, err)
	}

	return Checksum(data), nil
}

func (b *FileBackend) Close() error { return nil }
