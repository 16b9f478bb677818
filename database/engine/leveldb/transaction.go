// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
)

// Transaction wraps a goleveldb transaction to satisfy engine.Transaction.
type Transaction struct {
	*leveldb.Transaction
}

// Put queues a write of the given key/value pair.
func (t *Transaction) Put(key, value []byte) error {
	return t.Transaction.Put(key, value, nil)
}

// Delete queues a removal of the given key.
func (t *Transaction) Delete(key []byte) error {
	return t.Transaction.Delete(key, nil)
}

// Discard abandons the transaction.
func (t *Transaction) Discard() {
	t.Transaction.Discard()
}

// Commit atomically applies all queued writes.
func (t *Transaction) Commit() error {
	return t.Transaction.Commit()
}
