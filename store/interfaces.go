package store

import (
	"context"
	"strings"
	"time"

	"github.com/normindex/normindex/core"
)

// Filters restricts a search to a subset of the index. Filtering happens
// before truncation to the result limit, so a heavily filtered query still
// returns up to Limit matches.
type Filters struct {
	// DocumentIds limits results to chunks of the listed documents.
	DocumentIds []core.ID

	// HierarchyPrefix limits results to chunks whose hierarchy path
	// starts with the given labels.
	HierarchyPrefix []string

	// Entities limits results to chunks referencing at least one of the
	// listed normative documents.
	Entities []string
}

// Empty reports whether no filter conditions are set.
func (f Filters) Empty() bool {
	return len(f.DocumentIds) == 0 && len(f.HierarchyPrefix) == 0 && len(f.Entities) == 0
}

// Match reports whether a payload passes all set conditions.
func (f Filters) Match(documentID core.ID, payload *core.Payload) bool {
	if len(f.DocumentIds) > 0 {
		found := false
		for _, id := range f.DocumentIds {
			if id == documentID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.HierarchyPrefix) > 0 {
		if len(payload.HierarchyPath) < len(f.HierarchyPrefix) {
			return false
		}
		for i, label := range f.HierarchyPrefix {
			if !strings.EqualFold(payload.HierarchyPath[i], label) {
				return false
			}
		}
	}

	if len(f.Entities) > 0 {
		found := false
	outer:
		for _, want := range f.Entities {
			for _, have := range payload.Entities {
				if strings.EqualFold(have, want) {
					found = true
					break outer
				}
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Query describes a similarity search against the index.
type Query struct {
	Vector   []float32
	MinScore float32
	Limit    int
	Filters  Filters
}

// Validate checks query parameters before they reach a backend.
func (q *Query) Validate() error {
	if len(q.Vector) == 0 {
		return ErrInvalidQuery
	}
	if q.Limit <= 0 {
		return ErrInvalidQuery
	}
	return nil
}

// UpsertResult aggregates the outcome of a batched upsert.
type UpsertResult struct {
	// Accepted is the number of entries newly written or overwritten.
	Accepted int

	// Duplicates is the number of entries skipped because an identical
	// content hash was already indexed.
	Duplicates int

	// Rejected is the number of entries dropped by validation or by a
	// batch that exhausted its retries.
	Rejected int

	// Batches is the number of batches dispatched to the backend.
	Batches int

	// FailedBatches is the number of batches that exhausted retries.
	FailedBatches int

	// Duration is the wall-clock time of the whole operation.
	Duration time.Duration
}

// VectorStore is a vector index over chunk entries.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Upsert writes one batch of entries. Entries whose chunk ID is
	// already indexed are counted as duplicates and left untouched.
	Upsert(ctx context.Context, entries []*core.IndexEntry) (inserted, duplicates int, err error)

	// Search returns up to query.Limit entries passing the filters,
	// ordered by similarity score descending.
	Search(ctx context.Context, query *Query) ([]*core.SearchResult, error)

	// DeleteDocument removes every chunk of a document.
	// Returns the number of entries removed.
	DeleteDocument(ctx context.Context, documentID core.ID) (int, error)

	// Stats reports index-wide counters.
	Stats(ctx context.Context) (*core.IndexStats, error)

	// Close releases backend resources.
	Close() error
}
