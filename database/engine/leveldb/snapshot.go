// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/rustchain-network/rustsyncd/database/engine"
)

// Snapshot wraps a goleveldb snapshot to satisfy engine.Snapshot.
type Snapshot struct {
	*leveldb.Snapshot
}

// Has reports whether the given key exists in the snapshot.
func (s *Snapshot) Has(key []byte) (bool, error) {
	return s.Snapshot.Has(key, nil)
}

// Get returns the value for the given key.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	return s.Snapshot.Get(key, nil)
}

// Release releases the snapshot.
func (s *Snapshot) Release() {
	s.Snapshot.Release()
}

// NewIterator returns an iterator over the given key range of the snapshot.
func (s *Snapshot) NewIterator(slice *engine.Range) engine.Iterator {
	return s.Snapshot.NewIterator(&util.Range{
		Start: slice.Start,
		Limit: slice.Limit,
	}, nil)
}
