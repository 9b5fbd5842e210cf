package cache

import (
	"context"
	"time"

	"github.com/normindex/normindex/core"
)

// Backend is a byte-value cache with per-entry TTLs.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the cached value for a key.
	// Returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key core.ID) ([]byte, error)

	// Set stores a value under a key for at most ttl.
	Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) error

	// Clear drops every entry.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
