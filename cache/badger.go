package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/normindex/normindex/core"
)

const badgerKeyPrefix = "qc:"

// BadgerBackend is a persistent cache backend with native TTL entries.
// A file-backed instance can be shared by several processes on one host;
// an in-memory instance serves tests.
type BadgerBackend struct {
	db *badger.DB
}

var _ Backend = (*BadgerBackend)(nil)

// OpenBadgerBackend opens a cache database at the given path.
// With inMemory set, path is ignored.
func OpenBadgerBackend(path string, inMemory bool) (*BadgerBackend, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return &BadgerBackend{db: db}, nil
}

func makeBadgerKey(key core.ID) []byte {
	buf := make([]byte, len(badgerKeyPrefix)+8)
	offset := copy(buf, badgerKeyPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(key))
	return buf
}

func (b *BadgerBackend) Get(ctx context.Context, key core.ID) ([]byte, error) {
	if b.db.IsClosed() {
		return nil, ErrCacheClosed
	}

	var value []byte
	err := b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBadgerKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return value, nil
}

func (b *BadgerBackend) Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) error {
	if b.db.IsClosed() {
		return ErrCacheClosed
	}

	err := b.db.Update(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeBadgerKey(key), value).WithTTL(ttl)
		return tx.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return nil
}

func (b *BadgerBackend) Clear(ctx context.Context) error {
	if b.db.IsClosed() {
		return ErrCacheClosed
	}
	if err := b.db.DropPrefix([]byte(badgerKeyPrefix)); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	return nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
