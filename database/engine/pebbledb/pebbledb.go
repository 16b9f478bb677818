// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements the chain store engine interface on top of
// cockroachdb/pebble.
package pebbledb

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"

	"github.com/rustchain-network/rustsyncd/database/engine"
)

var (
	ErrDbClosed         = errors.New("pebbledb: closed")
	ErrTxClosed         = errors.New("pebbledb: transaction already closed")
	ErrSnapshotReleased = errors.New("pebbledb: snapshot released")
)

const (
	// DefaultCache is the default block cache size in MiB.
	DefaultCache = 64

	// DefaultHandles is the default maximum number of open files.
	DefaultHandles = 16
)

// NewDB opens (or creates, when create is set) a pebble-backed engine at
// dbPath.  Zero cache or handles select the defaults.
func NewDB(dbPath string, create bool, cache, handles int) (engine.Engine, error) {
	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	opts := &pebble.Options{
		Cache:                    pebble.NewCache(int64(cache * 1024 * 1024)),
		ErrorIfExists:            create,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels: []pebble.LevelOptions{
			{TargetFileSize: 2 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 4 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 8 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 16 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 32 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 64 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 128 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		},
	}
	opts.Experimental.ReadSamplingMultiplier = -1
	dbEngine, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}

	return &DB{DB: dbEngine}, nil
}

// DB wraps a pebble database to satisfy engine.Engine.
type DB struct {
	*pebble.DB

	closed atomic.Bool
}

// setClosed sets the closed flag and reports whether the database was not
// already closed.
func (d *DB) setClosed() bool {
	return !d.closed.Swap(true)
}

func (d *DB) isClosed() bool {
	return d.closed.Load()
}

// Transaction starts a read/write transaction.  This is part of the
// engine.Engine interface implementation.
func (d *DB) Transaction() (engine.Transaction, error) {
	if d.isClosed() {
		return nil, ErrDbClosed
	}
	return &Transaction{Batch: d.DB.NewBatch()}, nil
}

// Snapshot returns a consistent read-only view of the store.  This is part
// of the engine.Engine interface implementation.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	if d.isClosed() {
		return nil, ErrDbClosed
	}
	return &Snapshot{Snapshot: d.DB.NewSnapshot()}, nil
}

// Close releases all database resources.  This is part of the engine.Engine
// interface implementation.
func (d *DB) Close() error {
	if !d.setClosed() {
		return ErrDbClosed
	}
	return d.DB.Close()
}
