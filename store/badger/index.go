package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/normindex/normindex/core"
	"github.com/normindex/normindex/quant"
	"github.com/normindex/normindex/store"
)

// Index implements store.VectorStore on an embedded BadgerDB.
//
// Entries are keyed by content-hash chunk ID, with a composite secondary
// index keyed by document ID for per-document scans and deletes. Search
// is a brute-force scan over all entries, which is adequate for the
// single-node collection sizes this backend targets.
type Index struct {
	backend   *Backend
	quantizer *quant.Quantizer
}

var _ store.VectorStore = (*Index)(nil)

// NewIndex creates an Index over an open backend.
func NewIndex(backend *Backend) (*Index, error) {
	quantizer, err := quant.New()
	if err != nil {
		return nil, err
	}
	return &Index{
		backend:   backend,
		quantizer: quantizer,
	}, nil
}

// Close closes the underlying backend.
func (x *Index) Close() error {
	return x.backend.Close()
}

// Upsert writes entries, skipping chunk IDs that are already indexed.
// The whole batch commits atomically.
func (x *Index) Upsert(ctx context.Context, entries []*core.IndexEntry) (int, int, error) {
	if x.backend.IsClosed() {
		return 0, 0, store.ErrStorageClosed
	}

	var inserted, duplicates int
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			key := makeEntryKey(entry.ChunkId)

			_, err := tx.Get(key)
			if err == nil {
				// Content hash already indexed, nothing to do.
				duplicates++
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			if err := tx.Set(key, store.MarshalEntry(entry)); err != nil {
				return err
			}

			docKey := makeDocIndexKey(entry.Payload.DocumentId, entry.ChunkId)
			if err := tx.Set(docKey, store.MarshalID(entry.ChunkId)); err != nil {
				return err
			}
			inserted++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, 0, err
	}
	return inserted, duplicates, nil
}

// Search scans all entries, applies the query filters, then ranks the
// survivors by cosine similarity and truncates to the limit.
func (x *Index) Search(ctx context.Context, query *store.Query) ([]*core.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if x.backend.IsClosed() {
		return nil, store.ErrStorageClosed
	}

	var results []*core.SearchResult

	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.IndexEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = store.UnmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}

			// Filters run before scoring and truncation.
			if !query.Filters.Match(entry.Payload.DocumentId, &entry.Payload) {
				continue
			}

			values, err := x.vectorValues(&entry.Vector)
			if err != nil {
				return err
			}

			score := float32(quant.Cosine(query.Vector, values))
			if score < query.MinScore {
				continue
			}

			results = append(results, &core.SearchResult{
				ChunkId: entry.ChunkId,
				Score:   score,
				Payload: entry.Payload,
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by score descending; chunk ID breaks ties deterministically.
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})

	if len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// vectorValues returns the comparable float values of a stored vector.
func (x *Index) vectorValues(vector *core.Vector) ([]float32, error) {
	if vector.Kind == core.VectorQuantized {
		return x.quantizer.Dequantize(vector)
	}
	return vector.Values, nil
}

// DeleteDocument removes every entry of a document along with its
// secondary index keys. Returns the number of entries removed.
func (x *Index) DeleteDocument(ctx context.Context, documentID core.ID) (int, error) {
	if x.backend.IsClosed() {
		return 0, store.ErrStorageClosed
	}

	var removed int
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialDocIndexKey(documentID)
		iter := tx.NewIterator(opts)

		// The secondary index value carries the serialized chunk ID,
		// which addresses the primary entry key.
		var docKeys [][]byte
		var chunkIDs []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			val, err := iter.Item().ValueCopy(nil)
			if err != nil {
				iter.Close()
				return err
			}
			chunkID, err := store.UnmarshalID(val)
			if err != nil {
				iter.Close()
				return err
			}
			docKeys = append(docKeys, key)
			chunkIDs = append(chunkIDs, chunkID)
		}
		iter.Close()

		for i, chunkID := range chunkIDs {
			if err := tx.Delete(makeEntryKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(docKeys[i]); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats counts indexed chunks and distinct documents.
func (x *Index) Stats(ctx context.Context) (*core.IndexStats, error) {
	if x.backend.IsClosed() {
		return nil, store.ErrStorageClosed
	}

	stats := &core.IndexStats{}

	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docIndexPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Composite keys sort by document ID, so distinct documents show
		// up as transitions during the scan.
		var lastDoc core.ID
		var haveDoc bool
		for iter.Rewind(); iter.Valid(); iter.Next() {
			docID, _, ok := parseDocIndexKey(iter.Item().Key())
			if !ok {
				continue
			}
			stats.TotalChunks++
			if !haveDoc || docID != lastDoc {
				stats.TotalDocuments++
				lastDoc = docID
				haveDoc = true
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return stats, nil
}
