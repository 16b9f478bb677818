// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/cockroachdb/pebble"

	"github.com/rustchain-network/rustsyncd/database/engine"
)

// Snapshot wraps a pebble snapshot to satisfy engine.Snapshot.
type Snapshot struct {
	*pebble.Snapshot
	released bool
}

// Has reports whether the given key exists in the snapshot.
func (s *Snapshot) Has(key []byte) (bool, error) {
	if s.released {
		return false, ErrSnapshotReleased
	}

	val, err := s.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return val != nil, nil
}

// Get returns the value for the given key.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	if s.released {
		return nil, ErrSnapshotReleased
	}

	ori, closer, err := s.Snapshot.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	val := make([]byte, len(ori))
	copy(val, ori)
	return val, nil
}

// Release releases the snapshot.
func (s *Snapshot) Release() {
	if !s.released {
		s.released = true
		s.Close()
	}
}

// NewIterator returns an iterator over the given key range of the snapshot.
func (s *Snapshot) NewIterator(slice *engine.Range) engine.Iterator {
	if s.released {
		return nil
	}

	iter, _ := s.Snapshot.NewIter(&pebble.IterOptions{
		LowerBound: slice.Start,
		UpperBound: slice.Limit,
	})
	iter.SeekLT(slice.Start)
	return &Iterator{Iterator: iter}
}
