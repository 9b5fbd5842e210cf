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


package normindex

import (
	"context"
	"log/slog"

	"github.com/normindex/normindex/ai"
	"github.com/normindex/normindex/ai/openai"
	"github.com/normindex/normindex/cache"
	"github.com/normindex/normindex/chunk"
	"github.com/normindex/normindex/config"
	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/extract"
	"github.com/normindex/normindex/ingest"
	"github.com/normindex/normindex/quant"
	"github.com/normindex/normindex/search"
	"github.com/normindex/normindex/store"
	storebadger "github.com/normindex/normindex/store/badger"
	"github.com/normindex/normindex/store/qdrant"
)

// Engine wires the index backend, AI services, and query cache into one
// handle. It is the entry point for embedding the indexer in a program;
// the CLI builds one per invocation.
type Engine struct {
	cfg       *config.Config
	index     store.VectorStore
	provider  ai.Provider
	quantizer *quant.Quantizer
	cache     *cache.QueryCache
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger   *slog.Logger
	provider ai.Provider
	index    store.VectorStore
}

// WithEngineLogger sets a custom logger.
// Default is slog.Default().
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithProvider overrides the AI provider built from the configuration.
// Intended for tests and embedders with custom transports.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithIndex overrides the vector store built from the configuration.
func WithIndex(index store.VectorStore) EngineOption {
	return func(o *engineOptions) {
		o.index = index
	}
}

// NewEngine builds an engine from the configuration.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		cfg:    cfg,
		logger: options.logger,
	}

	provider := options.provider
	if provider == nil {
		aiCfg := ai.NewConfig(
			ai.WithEmbeddingHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
			ai.WithBatchSize(cfg.Embedding.BatchSize),
			ai.WithRequestTimeout(cfg.Embedding.Timeout.Std()),
			ai.WithRecognizerHost(cfg.Recognizer.Host),
			ai.WithRecognizerLanguage(cfg.Recognizer.Language),
		)
		var err error
		provider, err = openai.NewProvider(aiCfg)
		if err != nil {
			return nil, err
		}
	}
	e.provider = provider

	quantizer, err := e.buildQuantizer()
	if err != nil {
		e.closePartial()
		return nil, err
	}
	e.quantizer = quantizer

	index := options.index
	if index == nil {
		index, err = e.buildIndex()
		if err != nil {
			e.closePartial()
			return nil, err
		}
	}
	e.index = index

	queryCache, err := e.buildCache()
	if err != nil {
		e.closePartial()
		return nil, err
	}
	e.cache = queryCache

	return e, nil
}

func (e *Engine) buildQuantizer() (*quant.Quantizer, error) {
	if e.cfg.Quantization.Disabled {
		return nil, nil
	}
	var opts []quant.Option
	if floor := e.cfg.Quantization.QualityFloor; floor > 0 {
		opts = append(opts, quant.WithQualityFloor(floor))
	}
	if e.cfg.Quantization.Strict {
		opts = append(opts, quant.WithStrict())
	}
	opts = append(opts, quant.WithLogger(e.logger))
	return quant.New(opts...)
}

func (e *Engine) buildIndex() (store.VectorStore, error) {
	switch e.cfg.Index.Backend {
	case config.BackendQdrant:
		qc := e.cfg.Index.Qdrant
		opts := []qdrant.Option{
			qdrant.WithTimeout(qc.Timeout.Std()),
			qdrant.WithLogger(e.logger),
		}
		if qc.APIKey != "" {
			opts = append(opts, qdrant.WithAPIKey(qc.APIKey))
		}
		return qdrant.New(qc.URL, qc.Collection, opts...)
	default:
		backend, err := storebadger.OpenBackend(e.cfg.Index.Path, false)
		if err != nil {
			return nil, err
		}
		index, err := storebadger.NewIndex(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		return index, nil
	}
}

func (e *Engine) buildCache() (*cache.QueryCache, error) {
	if e.cfg.Cache.Disabled {
		return nil, nil
	}

	maxCost := e.cfg.Cache.MaxCost
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	fallback, err := cache.NewRistrettoBackend(maxCost)
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{cache.WithLogger(e.logger)}
	if ttl := e.cfg.Cache.TTL.Std(); ttl > 0 {
		opts = append(opts, cache.WithTTL(ttl))
	}
	if e.cfg.Cache.Path != "" {
		primary, err := cache.OpenBadgerBackend(e.cfg.Cache.Path, false)
		if err != nil {
			fallback.Close()
			return nil, err
		}
		opts = append(opts, cache.WithPrimary(primary))
	}

	return cache.New(fallback, opts...)
}

// Index returns the vector store.
func (e *Engine) Index() store.VectorStore {
	return e.index
}

// Cache returns the query cache, or nil when caching is disabled.
func (e *Engine) Cache() *cache.QueryCache {
	return e.cache
}

// NewIngestionPipeline builds an ingestion pipeline over the engine's
// index. The caller owns the pipeline and must Release it.
func (e *Engine) NewIngestionPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	extractor := extract.New(e.provider.Recognizer(), extract.WithLogger(e.logger))

	var chunkOpts []chunk.Option
	chunkOpts = append(chunkOpts, chunk.WithLogger(e.logger))
	chunker := chunk.New(chunk.Policy{
		MaxTokens: e.cfg.Chunking.MaxTokens,
		Overlap:   e.cfg.Chunking.Overlap,
	}, chunkOpts...)

	upserterOpts := []store.UpserterOption{store.WithUpserterLogger(e.logger)}
	if e.cfg.Ingest.BatchSize > 0 {
		upserterOpts = append(upserterOpts, store.WithBatchSize(e.cfg.Ingest.BatchSize))
	}
	if e.cfg.Ingest.Concurrency > 0 {
		upserterOpts = append(upserterOpts, store.WithConcurrency(e.cfg.Ingest.Concurrency))
	}
	upserter, err := store.NewUpserter(e.index, upserterOpts...)
	if err != nil {
		return nil, err
	}

	pipelineOpts := []ingest.Option{ingest.WithLogger(e.logger)}
	if e.cache != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithInvalidator(e.cache))
	}
	if e.cfg.Quantization.Disabled {
		pipelineOpts = append(pipelineOpts, ingest.WithoutCompression())
	}
	if e.cfg.Ingest.PoolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingest.WithPoolSize(e.cfg.Ingest.PoolSize))
	}
	if e.cfg.Ingest.MaxAttempts > 0 {
		pipelineOpts = append(pipelineOpts, ingest.WithRetry(e.cfg.Ingest.MaxAttempts, e.cfg.Ingest.RetryDelay.Std()))
	}
	pipelineOpts = append(pipelineOpts, opts...)

	return ingest.NewPipeline(extractor, chunker, e.provider.Embedder(), e.quantizer, upserter, pipelineOpts...)
}

// NewSearcher builds a searcher over the engine's index, fronted by the
// query cache when one is configured.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	searchOpts := []search.Option{search.WithLogger(e.logger)}
	if e.cache != nil {
		searchOpts = append(searchOpts, search.WithCache(e.cache))
	}
	searchOpts = append(searchOpts, opts...)
	return search.NewSearcher(e.index, e.provider.Embedder(), searchOpts...)
}

// DeleteDocument removes every chunk of a document from the index and
// invalidates the query cache. Returns the number of chunks removed.
func (e *Engine) DeleteDocument(ctx context.Context, documentID core.ID) (int, error) {
	removed, err := e.index.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if removed > 0 && e.cache != nil {
		if err := e.cache.Invalidate(context.Background()); err != nil {
			e.logger.Warn("cache invalidation after delete failed", "err", err)
		}
	}
	return removed, nil
}

// Stats reports aggregate index contents.
func (e *Engine) Stats(ctx context.Context) (*core.IndexStats, error) {
	return e.index.Stats(ctx)
}

// Close releases the cache, index, and AI provider.
func (e *Engine) Close() error {
	var firstErr error

	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Error("error closing query cache", "err", err)
			firstErr = err
		}
	}
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing index", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Engine) closePartial() {
	if e.cache != nil {
		e.cache.Close()
	}
	if e.index != nil {
		e.index.Close()
	}
	if e.provider != nil {
		e.provider.Close()
	}
}
