// Package cache provides pluggable byte-level caching for HTTP responses.
//
// Three backends are available:
//   - FileCache: on-disk cache for normal CLI usage
//   - RedisCache: shared cache for teams running scans from CI
//   - NullCache: disables caching entirely
//
// Values are stored with a TTL; expired entries are treated as misses.
package cache

import (
	"context"
	"time"
)

// Cache is the interface implemented by all cache backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of zero means the entry
	// never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
