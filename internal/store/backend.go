package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
)

var (
	// ErrNotFound is returned by a Backend when the key holds no data.
	ErrNotFound = errors.New("storage key not found")
	// ErrVersionConflict is returned by Put when the stored version no
	// longer matches the expected one.
	ErrVersionConflict = errors.New("storage version conflict")
)

const (
	// VersionAbsent as the expected version makes Put succeed only when the
	// key does not exist yet.
	VersionAbsent = ""
	// VersionAny makes Put overwrite whatever is stored.
	VersionAny = "*"
)

// Blob is the raw value stored under a key together with its version.
type Blob struct {
	Data    []byte
	Version string
}

// Backend is a durable single-value-per-key store with compare-and-swap
// writes. Versions are content checksums, so any backend that can store
// bytes can report them.
type Backend interface {
	// Get returns the value under key or ErrNotFound.
	Get(ctx context.Context, key string) (Blob, error)
	// Put writes data under key if the current version equals expected
	// (VersionAbsent, VersionAny or a version returned earlier) and returns
	// the new version. A mismatch yields ErrVersionConflict.
	Put(ctx context.Context, key string, data []byte, expected string) (string, error)
	Close() error
}

// Checksum computes the version string for a stored value
func Checksum(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

// versionMatches reports whether a write expecting expected may replace a
// value whose current version is current (VersionAbsent when missing).
func versionMatches(expected, current string, exists bool) bool {
	switch expected {
	case VersionAny:
		return true
	case VersionAbsent:
		return !exists
	default:
		return exists && current == expected
	}
}
