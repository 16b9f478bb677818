// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine defines the key/value storage engine interface the chain
// store is built on, along with the shared test suite every backend must
// pass.  Concrete backends live in the leveldb and pebbledb subpackages.
package engine

import "errors"

// ErrIterReleased is returned from iterator operations performed after the
// iterator has been released.
var ErrIterReleased = errors.New("engine: iterator released")

// Engine is a transactional key/value store.  All chain store mutations go
// through a single Transaction so a block connect or reorganization is
// applied atomically, and all reads go through a Snapshot so they observe a
// consistent view.
type Engine interface {
	// Transaction starts a read/write transaction.  Changes are not
	// visible to snapshots until Commit.
	Transaction() (Transaction, error)

	// Snapshot returns a consistent read-only view of the store.
	Snapshot() (Snapshot, error)

	// Close releases all database resources.  All transactions and
	// snapshots must be resolved before closing.
	Close() error
}

// Transaction is an atomic batch of writes.  Either Commit or Discard must
// be called; Discard after Commit is a no-op.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}

// Snapshot is a point-in-time read-only view of the store.
type Snapshot interface {
	// Get returns the value for the given key.  It returns an error when
	// the key does not exist.
	Get(key []byte) ([]byte, error)

	// Has reports whether the given key exists.
	Has(key []byte) (bool, error)

	// NewIterator returns an iterator over the given key range.
	NewIterator(*Range) Iterator

	Releaser
}

// Iterator walks a key range of a snapshot in key order.  The returned key
// and value slices are only valid until the next positioning call.
type Iterator interface {
	// First moves the iterator to the first key/value pair and reports
	// whether such a pair exists.
	First() bool

	// Last moves the iterator to the last key/value pair and reports
	// whether such a pair exists.
	Last() bool

	// Seek moves the iterator to the first key/value pair whose key is
	// greater than or equal to the given key and reports whether such a
	// pair exists.
	Seek(key []byte) bool

	// Next moves the iterator to the next key/value pair.  It returns
	// false when the iterator is exhausted.
	Next() bool

	// Prev moves the iterator to the previous key/value pair.  It
	// returns false when the iterator is exhausted.
	Prev() bool

	// Valid reports whether the iterator is positioned on a key/value
	// pair.
	Valid() bool

	// Error returns any accumulated error.  Exhausting all the key/value
	// pairs is not considered an error.
	Error() error

	// Key returns the key of the current key/value pair, or nil if done.
	Key() []byte

	// Value returns the value of the current key/value pair, or nil if
	// done.
	Value() []byte

	Releaser
}

// Releaser releases underlying resources.  Multiple calls are safe.
type Releaser interface {
	Release()
}

// Range is a half-open key range: Start is included, Limit is excluded.  A
// nil Start iterates from the first key and a nil Limit iterates through the
// last key.
type Range struct {
	Start []byte
	Limit []byte
}

// BytesPrefix returns the key range that covers all keys with the given
// prefix under bytewise key ordering.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &Range{Start: prefix, Limit: limit}
}
