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


package search

import (
	"context"
	"log/slog"
	"slices"

	"github.com/normindex/normindex/ai"
	"github.com/normindex/normindex/cache"
	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/quant"
	"github.com/normindex/normindex/store"
)

const (
	// DefaultLimit is the result count when a request does not set one.
	DefaultLimit = 10

	// DefaultMinScore filters out weak matches unless the request
	// overrides the threshold.
	DefaultMinScore = 0.60

	// verbatimBoost is added to the score of results whose text contains
	// every significant query word.
	verbatimBoost = 0.3
)

// Request describes one search over the index.
// Zero Limit and MinScore fall back to the package defaults; a negative
// MinScore disables the threshold entirely.
type Request struct {
	Query    string
	Limit    int
	MinScore float32
	Filters  store.Filters
}

// Searcher answers semantic queries over the chunk index, fronted by an
// optional query cache.
type Searcher struct {
	index    store.VectorStore
	embedder ai.Embedder
	cache    *cache.QueryCache
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithCache fronts the searcher with a query cache. Cached entries are
// keyed by the normalized query and the request parameters.
func WithCache(c *cache.QueryCache) Option {
	return func(s *Searcher) error {
		s.cache = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher over the given index.
func NewSearcher(index store.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:    index,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search runs the request and returns up to Limit results ranked by
// relevance score.
func (s *Searcher) Search(ctx context.Context, req Request) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs the request with monitoring. The monitor
// receives callbacks at each stage of the search process; a cache hit
// skips the embedding and index stages entirely.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	normalized := Normalize(req.Query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.MinScore == 0 {
		req.MinScore = DefaultMinScore
	}

	monitor.Start(normalized)

	compute := func(ctx context.Context) ([]*core.SearchResult, error) {
		return s.query(ctx, normalized, req, monitor)
	}

	if s.cache == nil {
		results, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		monitor.Finish(results)
		return results, nil
	}

	key := cache.Key(normalized, req.Limit, req.MinScore, req.Filters)
	results, cached, err := s.cache.GetOrCompute(ctx, key, compute)
	if err != nil {
		return nil, err
	}
	monitor.CacheLookup(cached)
	if cached {
		s.logger.Debug("query served from cache", "query", normalized)
	}
	monitor.Finish(results)
	return results, nil
}

// query embeds the normalized query, searches the index, and applies the
// verbatim match boost. Runs only on a cache miss.
func (s *Searcher) query(ctx context.Context, normalized string, req Request, monitor SearchMonitor) ([]*core.SearchResult, error) {
	embedding, err := s.embedder.EmbedText(ctx, normalized)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", normalized, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(embedding))

	results, err := s.index.Search(ctx, &store.Query{
		Vector:   quant.Normalize(embedding),
		MinScore: req.MinScore,
		Limit:    req.Limit,
		Filters:  req.Filters,
	})
	if err != nil {
		s.logger.Error("error querying index", "err", err)
		return nil, err
	}
	monitor.AfterIndexSearch(results)

	boosted := false
	for _, result := range results {
		if containsAllQueryWords(result.Payload.Text, normalized) {
			result.Score += verbatimBoost
			boosted = true
			monitor.VerbatimHit(result)
		}
	}
	if boosted {
		slices.SortFunc(results, func(a, b *core.SearchResult) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			case a.ChunkId < b.ChunkId:
				return -1
			case a.ChunkId > b.ChunkId:
				return 1
			default:
				return 0
			}
		})
	}

	return results, nil
}
