package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/normindex/normindex/ai"
	"github.com/normindex/normindex/chunk"
	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/extract"
	"github.com/normindex/normindex/quant"
	"github.com/normindex/normindex/store"
)

// CacheInvalidator drops cached search responses after index mutations.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

const (
	// DefaultRetryAttempts bounds retries of transient backend failures.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the initial backoff delay between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Pipeline orchestrates document ingestion: extraction, chunking,
// embedding, compression, and upsert into the vector index.
type Pipeline struct {
	extractor    *extract.Extractor
	chunker      *chunk.Chunker
	embedder     ai.Embedder
	quantizer    *quant.Quantizer
	upserter     *store.Upserter
	invalidator  CacheInvalidator
	pool         *ants.Pool
	jobs         *Jobs
	tracker      *ProgressTracker
	uncompressed bool
	maxAttempts  int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent documents.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithInvalidator sets the cache to invalidate after index mutations.
func WithInvalidator(invalidator CacheInvalidator) Option {
	return func(p *Pipeline) error {
		p.invalidator = invalidator
		return nil
	}
}

// WithProgress attaches a progress tracker.
func WithProgress(tracker *ProgressTracker) Option {
	return func(p *Pipeline) error {
		p.tracker = tracker
		return nil
	}
}

// WithoutCompression stores full-precision vectors, skipping quantization.
func WithoutCompression() Option {
	return func(p *Pipeline) error {
		p.uncompressed = true
		return nil
	}
}

// WithRetry sets the attempt budget and initial backoff delay applied to
// transient embedding and recognition failures.
// Defaults are DefaultRetryAttempts and DefaultRetryDelay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	extractor *extract.Extractor,
	chunker *chunk.Chunker,
	embedder ai.Embedder,
	quantizer *quant.Quantizer,
	upserter *store.Upserter,
	opts ...Option,
) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if upserter == nil {
		return nil, ErrUpserterRequired
	}
	if quantizer == nil {
		var err error
		quantizer, err = quant.New()
		if err != nil {
			return nil, err
		}
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		quantizer:   quantizer,
		upserter:    upserter,
		pool:        pool,
		jobs:        NewJobs(),
		maxAttempts: DefaultRetryAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default().With("component", "ingest"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Release shuts down the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Jobs returns the job registry.
func (p *Pipeline) Jobs() *Jobs {
	return p.jobs
}

// Run starts an asynchronous ingestion job for the given documents and
// returns it immediately. Use Job.Wait to block for completion.
func (p *Pipeline) Run(ctx context.Context, documents []*core.SourceDocument) (*Job, error) {
	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := newJob(cancel)
	p.jobs.Add(job)

	go p.run(jobCtx, job, documents)
	return job, nil
}

// RunSync ingests documents and waits for the job to finish.
func (p *Pipeline) RunSync(ctx context.Context, documents []*core.SourceDocument) (*Job, error) {
	job, err := p.Run(ctx, documents)
	if err != nil {
		return nil, err
	}
	if err := job.Wait(ctx); err != nil && job.Status() != StatusCancelled {
		return job, err
	}
	return job, nil
}

func (p *Pipeline) run(ctx context.Context, job *Job, documents []*core.SourceDocument) {
	defer job.cancel()
	job.start()

	if p.tracker != nil {
		p.tracker.Start()
	}

	p.logger.Info("ingestion started", "job", job.Id, "documents", len(documents))

	var wg sync.WaitGroup
	var mutated bool
	var mu sync.Mutex

	for _, document := range documents {
		if ctx.Err() != nil {
			break
		}

		doc := document
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			outcome := p.processDocument(ctx, doc)
			job.addOutcome(outcome)

			if p.tracker != nil {
				p.tracker.Document(outcome.Status == DocumentFailed)
			}
			if outcome.Accepted > 0 {
				mu.Lock()
				mutated = true
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			job.addOutcome(Outcome{
				DocumentId: doc.Id,
				Path:       doc.Path,
				Status:     DocumentFailed,
				Err:        err,
			})
		}
	}

	wg.Wait()

	if p.tracker != nil {
		p.tracker.Finish()
	}

	if mutated {
		p.invalidateCache()
	}

	switch {
	case ctx.Err() != nil:
		job.finish(StatusCancelled, ctx.Err())
	case allFailed(job.Outcomes()):
		job.finish(StatusFailed, fmt.Errorf("all %d documents failed", len(documents)))
	default:
		job.finish(StatusCompleted, nil)
	}

	p.logger.Info("ingestion finished",
		"job", job.Id, "status", job.Status().String(), "duration", job.Duration())
}

// processDocument runs one document through every pipeline stage.
// Cancellation is honored at stage boundaries; a document that reached
// its upsert is never left half-indexed.
func (p *Pipeline) processDocument(ctx context.Context, doc *core.SourceDocument) Outcome {
	outcome := Outcome{DocumentId: doc.Id, Path: doc.Path}

	fail := func(err error) Outcome {
		p.logger.Warn("document failed", "path", doc.Path, "error", err)
		outcome.Status = DocumentFailed
		outcome.Err = err
		return outcome
	}

	var content *core.ExtractedContent
	err := RetryWithBackoff(ctx, func() error {
		var extractErr error
		content, extractErr = p.extractor.Extract(ctx, doc)
		if extractErr != nil && !errors.Is(extractErr, ai.ErrRecognitionUnavailable) {
			// A corrupt document will not parse better on a second attempt.
			return Permanent(extractErr)
		}
		return extractErr
	}, p.maxAttempts, p.retryDelay)
	if err != nil {
		return fail(err)
	}
	outcome.Method = content.Method

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	chunks, err := p.chunker.Chunk(content)
	if err != nil {
		return fail(err)
	}
	outcome.Chunks = len(chunks)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	err = RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = p.embedder.EmbedTexts(ctx, texts)
		if embedErr != nil && !errors.Is(embedErr, ai.ErrEmbeddingUnavailable) {
			return Permanent(embedErr)
		}
		return embedErr
	}, p.maxAttempts, p.retryDelay)
	if err != nil {
		return fail(err)
	}
	if len(embeddings) != len(chunks) {
		return fail(fmt.Errorf("%w: %d vectors for %d chunks",
			ErrEmbeddingMismatch, len(embeddings), len(chunks)))
	}

	vectors := make([]*core.Vector, len(chunks))
	for i, c := range chunks {
		values := quant.Normalize(embeddings[i])
		vectors[i] = &core.Vector{
			ChunkId: c.Id,
			Dim:     len(values),
			Kind:    core.VectorFull,
			Values:  values,
		}
	}

	compressed := vectors
	if !p.uncompressed {
		var report *quant.Report
		compressed, report, err = p.quantizer.Compress(vectors)
		if err != nil {
			return fail(err)
		}
		if !report.Compressed {
			p.logger.Warn("storing document uncompressed",
				"path", doc.Path, "avgCosine", report.AvgCosine)
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	entries := make([]*core.IndexEntry, len(chunks))
	for i, c := range chunks {
		entry := core.EntryFromChunk(c, *compressed[i])
		entry.Payload.Method = content.Method
		entries[i] = &entry
	}

	result, err := p.upserter.UpsertAll(ctx, entries)
	if err != nil {
		return fail(err)
	}

	outcome.Accepted = result.Accepted
	outcome.Duplicates = result.Duplicates

	if result.Accepted == 0 && result.Duplicates > 0 {
		outcome.Status = DocumentDuplicate
	} else {
		outcome.Status = DocumentIndexed
	}

	p.logger.Debug("document processed",
		"path", doc.Path, "status", outcome.Status.String(),
		"chunks", outcome.Chunks, "accepted", outcome.Accepted,
		"duplicates", outcome.Duplicates, "method", content.Method.String())

	return outcome
}

// DeleteDocument removes a document from the index and invalidates the
// cache. It is exposed here so deletes share the pipeline's invalidation
// behavior with ingestion.
func (p *Pipeline) DeleteDocument(ctx context.Context, index store.VectorStore, documentID core.ID) (int, error) {
	removed, err := index.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		p.invalidateCache()
	}
	return removed, nil
}

// Reindex removes each document's existing chunks and ingests it again.
// Use after a chunking policy or embedding model change; plain Run would
// short-circuit unchanged documents as duplicates.
func (p *Pipeline) Reindex(ctx context.Context, index store.VectorStore, documents []*core.SourceDocument) (*Job, error) {
	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}
	for _, doc := range documents {
		removed, err := p.DeleteDocument(ctx, index, doc.Id)
		if err != nil {
			return nil, fmt.Errorf("reindex %s: %w", doc.Path, err)
		}
		if removed > 0 {
			p.logger.Info("removed stale chunks before reindex",
				"path", doc.Path, "chunks", removed)
		}
	}
	return p.Run(ctx, documents)
}

func (p *Pipeline) invalidateCache() {
	if p.invalidator == nil {
		return
	}
	// Invalidation must not inherit job cancellation.
	if err := p.invalidator.Invalidate(context.Background()); err != nil {
		p.logger.Warn("cache invalidation failed", "error", err)
	}
}

func allFailed(outcomes []Outcome) bool {
	if len(outcomes) == 0 {
		return true
	}
	for _, outcome := range outcomes {
		if outcome.Status != DocumentFailed {
			return false
		}
	}
	return true
}
