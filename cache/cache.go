package cache

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache       = errors.New("cache: cache is nil")
	ErrInvalidKey     = errors.New("cache: key is invalid")
	ErrKeyTooLong     = errors.New("cache: key exceeds max length")
	ErrDuplicateField = errors.New("cache: duplicate key field")
	ErrClosed         = errors.New("cache: store is closed")
)

// Cache stores encoded computation results keyed by fingerprint.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: values are copied in and out; callers may mutate what they pass or receive.
// - Errors: Get should never error; it returns (nil, false) on miss.
// - Lifetime: entries live until Reset. There is no eviction or expiry.
type Cache interface {
	// Get retrieves a stored value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Put inserts or overwrites a value.
	Put(ctx context.Context, key string, value []byte) error

	// Reset removes every entry.
	Reset(ctx context.Context) error

	// Len returns the number of stored entries.
	Len() int
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
