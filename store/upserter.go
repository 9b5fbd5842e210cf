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

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/normindex/normindex/core"
)

const (
	// DefaultBatchSize is the number of entries per backend write.
	DefaultBatchSize = 64

	// DefaultConcurrency is the worker pool size for parallel batches.
	DefaultConcurrency = 4

	// DefaultMaxRetries is the number of attempts per batch.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the initial retry backoff, doubling per attempt.
	DefaultBaseDelay = 200 * time.Millisecond

	// DefaultBatchTimeout bounds a single backend write attempt.
	DefaultBatchTimeout = 30 * time.Second
)

// Upserter writes entries to a VectorStore in fixed-size parallel batches.
//
// Batch composition is deterministic for a given input order: entries are
// sliced sequentially before being dispatched, so only write timing varies
// between runs. A batch that exhausts its retries is counted as rejected
// without aborting the rest of the operation.
type Upserter struct {
	store       VectorStore
	pool        *ants.Pool
	batchSize   int
	concurrency int
	maxRetries  int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// UpserterOption configures an Upserter.
type UpserterOption func(*Upserter) error

// WithBatchSize sets the number of entries per batch.
func WithBatchSize(size int) UpserterOption {
	return func(u *Upserter) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		u.batchSize = size
		return nil
	}
}

// WithConcurrency sets the number of parallel batch writers.
func WithConcurrency(workers int) UpserterOption {
	return func(u *Upserter) error {
		if workers <= 0 {
			return fmt.Errorf("concurrency must be positive, got %d", workers)
		}
		u.concurrency = workers
		return nil
	}
}

// WithRetry sets the per-batch retry budget and base backoff delay.
func WithRetry(maxRetries int, baseDelay time.Duration) UpserterOption {
	return func(u *Upserter) error {
		if maxRetries <= 0 {
			return fmt.Errorf("max retries must be positive, got %d", maxRetries)
		}
		u.maxRetries = maxRetries
		u.baseDelay = baseDelay
		return nil
	}
}

// WithBatchTimeout bounds each backend write attempt.
func WithBatchTimeout(timeout time.Duration) UpserterOption {
	return func(u *Upserter) error {
		if timeout <= 0 {
			return fmt.Errorf("batch timeout must be positive, got %v", timeout)
		}
		u.timeout = timeout
		return nil
	}
}

// WithUpserterLogger sets a custom logger.
func WithUpserterLogger(logger *slog.Logger) UpserterOption {
	return func(u *Upserter) error {
		if logger != nil {
			u.logger = logger
		}
		return nil
	}
}

// NewUpserter creates an Upserter over the given store.
// Callers must Release it when done.
func NewUpserter(store VectorStore, opts ...UpserterOption) (*Upserter, error) {
	u := &Upserter{
		store:       store,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		maxRetries:  DefaultMaxRetries,
		baseDelay:   DefaultBaseDelay,
		timeout:     DefaultBatchTimeout,
		logger:      slog.Default().With("component", "upserter"),
	}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(u.concurrency)
	if err != nil {
		return nil, err
	}
	u.pool = pool
	return u, nil
}

// Release shuts down the worker pool.
func (u *Upserter) Release() {
	u.pool.Release()
}

// batchOutcome carries one batch's counters back to the aggregator.
type batchOutcome struct {
	inserted   int
	duplicates int
	rejected   int
	failed     bool
}

// UpsertAll validates, batches, and writes entries through the pool.
//
// Invalid entries are counted as rejected without reaching the backend.
// Returns a non-nil error only when the context is cancelled or every
// batch failed; partial failures are reflected in the result counters.
func (u *Upserter) UpsertAll(ctx context.Context, entries []*core.IndexEntry) (*UpsertResult, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}

	start := time.Now()
	result := &UpsertResult{}

	valid := make([]*core.IndexEntry, 0, len(entries))
	for _, entry := range entries {
		if err := core.ValidateEntry(entry); err != nil {
			u.logger.Warn("rejecting invalid entry", "error", err)
			result.Rejected++
			continue
		}
		valid = append(valid, entry)
	}

	if len(valid) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	outcomes := make(chan batchOutcome, (len(valid)+u.batchSize-1)/u.batchSize)
	var wg sync.WaitGroup

	for begin := 0; begin < len(valid); begin += u.batchSize {
		if ctx.Err() != nil {
			break
		}

		end := begin + u.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[begin:end]
		result.Batches++

		wg.Add(1)
		err := u.pool.Submit(func() {
			defer wg.Done()
			outcomes <- u.writeBatch(ctx, batch)
		})
		if err != nil {
			wg.Done()
			result.Batches--
			u.logger.Error("batch submission failed", "error", err)
			result.Rejected += len(batch)
		}
	}

	wg.Wait()
	close(outcomes)

	for outcome := range outcomes {
		result.Accepted += outcome.inserted
		result.Duplicates += outcome.duplicates
		result.Rejected += outcome.rejected
		if outcome.failed {
			result.FailedBatches++
		}
	}
	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Batches > 0 && result.FailedBatches == result.Batches {
		return result, fmt.Errorf("%w: all %d batches failed", ErrBackendUnavailable, result.Batches)
	}

	u.logger.Debug("upsert complete",
		"accepted", result.Accepted, "duplicates", result.Duplicates,
		"rejected", result.Rejected, "batches", result.Batches,
		"duration", result.Duration)

	return result, nil
}

// writeBatch writes one batch with exponential backoff.
func (u *Upserter) writeBatch(ctx context.Context, batch []*core.IndexEntry) batchOutcome {
	var lastErr error

	delay := u.baseDelay
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return batchOutcome{rejected: len(batch), failed: true}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, u.timeout)
		inserted, duplicates, err := u.store.Upsert(attemptCtx, batch)
		cancel()

		if err == nil {
			return batchOutcome{inserted: inserted, duplicates: duplicates}
		}
		lastErr = err

		u.logger.Debug("batch write failed, will retry",
			"attempt", attempt, "maxAttempts", u.maxRetries, "error", err)

		if attempt == u.maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return batchOutcome{rejected: len(batch), failed: true}
		case <-timer.C:
		}
		delay *= 2
	}

	u.logger.Error("batch write exhausted retries", "entries", len(batch), "error", lastErr)
	return batchOutcome{rejected: len(batch), failed: true}
}
