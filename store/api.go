package store

import (
	"context"
	"time"
)

// Store abstracts the shared key-value store that backs distributed lock
// state. All server instances must see the same store; correctness of the
// lock protocol rests entirely on SetIfAbsent being atomic.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and, for the Redis implementation, from multiple processes.
type Store interface {
	// SetIfAbsent atomically sets key to value only if the key does not
	// exist. Returns true if the key was set. A ttl of zero means the key
	// never expires.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Set unconditionally sets key to value. A ttl of zero means the key
	// never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value stored at key, or ErrKeyNotFound if the key
	// does not exist or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes the given keys. Deleting a missing key is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether key currently exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Scan invokes fn for every key matching the glob pattern. Iteration
	// stops early if fn returns an error, which is then returned to the
	// caller. Keys created or deleted during the scan may or may not be
	// observed.
	Scan(ctx context.Context, pattern string, fn func(key string) error) error

	// Close releases any resources held by the store.
	Close() error
}
