// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/cockroachdb/pebble"
)

// Transaction wraps a pebble batch to satisfy engine.Transaction.
type Transaction struct {
	*pebble.Batch
	released bool
}

// Put queues a write of the given key/value pair.
func (t *Transaction) Put(key, value []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.Batch.Set(key, value, pebble.NoSync)
}

// Delete queues a removal of the given key.
func (t *Transaction) Delete(key []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.Batch.Delete(key, pebble.NoSync)
}

// Discard abandons the transaction.
func (t *Transaction) Discard() {
	if !t.released {
		t.released = true
		t.Batch.Close()
	}
}

// Commit atomically applies all queued writes.
func (t *Transaction) Commit() error {
	if t.released {
		return ErrTxClosed
	}
	return t.Batch.Commit(pebble.Sync)
}
