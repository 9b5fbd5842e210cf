package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/normindex/normindex/core"
)

const (
	// defaultMaxCost caps the in-process cache at 64 MiB of values.
	defaultMaxCost = 64 << 20

	defaultNumCounters = 1e6
	defaultBufferItems = 64
)

// RistrettoBackend is an in-process cache backend.
type RistrettoBackend struct {
	cache *ristretto.Cache[uint64, []byte]
}

var _ Backend = (*RistrettoBackend)(nil)

// NewRistrettoBackend creates an in-process backend with maxCost bytes
// of capacity. A non-positive maxCost uses the default.
func NewRistrettoBackend(maxCost int64) (*RistrettoBackend, error) {
	if maxCost <= 0 {
		maxCost = defaultMaxCost
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters: defaultNumCounters,
		MaxCost:     maxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoBackend{cache: cache}, nil
}

func (b *RistrettoBackend) Get(ctx context.Context, key core.ID) ([]byte, error) {
	value, ok := b.cache.Get(uint64(key))
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (b *RistrettoBackend) Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) error {
	b.cache.SetWithTTL(uint64(key), value, int64(len(value)), ttl)
	// Admission is asynchronous; wait so a freshly set key is readable.
	b.cache.Wait()
	return nil
}

func (b *RistrettoBackend) Clear(ctx context.Context) error {
	b.cache.Clear()
	return nil
}

func (b *RistrettoBackend) Close() error {
	b.cache.Close()
	return nil
}
