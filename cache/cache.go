// Copyright 2026 Normindex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/store"
)

// DefaultTTL is the lifetime of a cached search response.
const DefaultTTL = 5 * time.Minute

// QueryCache caches search responses in a primary backend with an
// in-process fallback.
//
// A primary failure switches reads and writes to the fallback and is
// logged once per outage; the next successful primary operation switches
// back. Cache misses are never errors on the query path.
type QueryCache struct {
	primary  Backend
	fallback Backend
	ttl      time.Duration
	logger   *slog.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	degraded atomic.Int64
	outage   atomic.Bool
}

// Option configures a QueryCache.
type Option func(*QueryCache) error

// WithPrimary sets a shared primary backend. Without one the cache runs
// on the fallback alone.
func WithPrimary(backend Backend) Option {
	return func(c *QueryCache) error {
		c.primary = backend
		return nil
	}
}

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *QueryCache) error {
		if ttl <= 0 {
			return fmt.Errorf("ttl must be positive, got %v", ttl)
		}
		c.ttl = ttl
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *QueryCache) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a QueryCache over the given in-process fallback backend.
func New(fallback Backend, opts ...Option) (*QueryCache, error) {
	if fallback == nil {
		return nil, errors.New("fallback backend is required")
	}

	c := &QueryCache{
		fallback: fallback,
		ttl:      DefaultTTL,
		logger:   slog.Default().With("component", "querycache"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Key derives a cache key from a normalized query and its search
// parameters. Queries differing only in parameters get distinct keys.
func Key(normalizedQuery string, limit int, minScore float32, filters store.Filters) core.ID {
	var sb strings.Builder
	sb.WriteString(normalizedQuery)
	sb.WriteByte('\n')
	sb.WriteString(strconv.Itoa(limit))
	sb.WriteByte('\n')
	sb.WriteString(strconv.FormatFloat(float64(minScore), 'g', -1, 32))
	for _, id := range filters.DocumentIds {
		sb.WriteString("\nd:")
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	for _, label := range filters.HierarchyPrefix {
		sb.WriteString("\nh:")
		sb.WriteString(label)
	}
	for _, entity := range filters.Entities {
		sb.WriteString("\ne:")
		sb.WriteString(entity)
	}
	return core.IDFromContent(sb.String())
}

// Get returns the cached results for a key.
// Returns ErrCacheMiss when absent in the active backend.
func (c *QueryCache) Get(ctx context.Context, key core.ID) ([]*core.SearchResult, error) {
	value, err := c.backendGet(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			c.misses.Add(1)
		}
		return nil, err
	}

	results, err := decodeResults(value)
	if err != nil {
		// A corrupt entry behaves like a miss.
		c.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	return results, nil
}

// Put stores results under a key. Failures are returned but callers on
// the query path may treat them as non-fatal.
func (c *QueryCache) Put(ctx context.Context, key core.ID, results []*core.SearchResult) error {
	return c.backendSet(ctx, key, encodeResults(results))
}

// GetOrCompute returns cached results for the key, computing and caching
// them on a miss. The cached flag reports whether the response was served
// from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key core.ID,
	compute func(ctx context.Context) ([]*core.SearchResult, error),
) ([]*core.SearchResult, bool, error) {
	results, err := c.Get(ctx, key)
	if err == nil {
		return results, true, nil
	}
	if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheUnavailable) {
		return nil, false, err
	}

	results, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.Put(ctx, key, results); err != nil {
		c.logger.Warn("failed to cache search results", "key", key, "error", err)
	}
	return results, false, nil
}

// Invalidate drops all cached responses.
// Called after every index mutation so no stale hit survives a write.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var errs []error
	if c.primary != nil {
		if err := c.primary.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.fallback.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close closes both backends.
func (c *QueryCache) Close() error {
	var errs []error
	if c.primary != nil {
		errs = append(errs, c.primary.Close())
	}
	errs = append(errs, c.fallback.Close())
	return errors.Join(errs...)
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Degraded int64
	HitRate  float64
}

// Stats returns a snapshot of the cache counters.
func (c *QueryCache) Stats() Stats {
	stats := Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Degraded: c.degraded.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// backendGet reads from the primary, degrading to the fallback when the
// primary fails with anything but a miss.
func (c *QueryCache) backendGet(ctx context.Context, key core.ID) ([]byte, error) {
	if c.primary == nil {
		return c.fallback.Get(ctx, key)
	}

	value, err := c.primary.Get(ctx, key)
	if err == nil || errors.Is(err, ErrCacheMiss) {
		c.recovered()
		return value, err
	}

	c.degrade(err)
	return c.fallback.Get(ctx, key)
}

// backendSet writes to the primary, degrading to the fallback on failure.
func (c *QueryCache) backendSet(ctx context.Context, key core.ID, value []byte) error {
	if c.primary == nil {
		return c.fallback.Set(ctx, key, value, c.ttl)
	}

	if err := c.primary.Set(ctx, key, value, c.ttl); err != nil {
		c.degrade(err)
		return c.fallback.Set(ctx, key, value, c.ttl)
	}
	c.recovered()
	return nil
}

func (c *QueryCache) degrade(err error) {
	c.degraded.Add(1)
	if c.outage.CompareAndSwap(false, true) {
		c.logger.Warn("primary cache unavailable, degrading to in-process cache", "error", err)
	}
}

func (c *QueryCache) recovered() {
	if c.outage.CompareAndSwap(true, false) {
		c.logger.Info("primary cache recovered")
	}
}

// encodeResults serializes results with a count header.
func encodeResults(results []*core.SearchResult) []byte {
	size := core.IDMUS.Size(core.ID(len(results)))
	for _, result := range results {
		size += core.SearchResultMUS.Size(*result)
	}

	buf := make([]byte, size)
	n := core.IDMUS.Marshal(core.ID(len(results)), buf)
	for _, result := range results {
		n += core.SearchResultMUS.Marshal(*result, buf[n:])
	}
	return buf
}

func decodeResults(data []byte) ([]*core.SearchResult, error) {
	count, n, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if count > core.ID(len(data)) {
		return nil, fmt.Errorf("implausible result count %d", count)
	}

	results := make([]*core.SearchResult, 0, count)
	for i := core.ID(0); i < count; i++ {
		result, n1, err := core.SearchResultMUS.Unmarshal(data[n:])
		n += n1
		if err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, nil
}
