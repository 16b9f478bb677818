// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements the chain store engine interface on top of
// goleveldb.
package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/rustchain-network/rustsyncd/database/engine"
)

// NewDB opens (or creates, when create is set) a leveldb-backed engine at
// dbPath.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &DB{DB: ldb}, nil
}

// DB wraps a goleveldb database to satisfy engine.Engine.
type DB struct {
	*leveldb.DB
}

// Transaction starts a read/write transaction.  This is part of the
// engine.Engine interface implementation.
func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.DB.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &Transaction{Transaction: tx}, nil
}

// Snapshot returns a consistent read-only view of the store.  This is part
// of the engine.Engine interface implementation.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	snapshot, err := d.DB.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &Snapshot{Snapshot: snapshot}, nil
}

// Close releases all database resources.  This is part of the engine.Engine
// interface implementation.
func (d *DB) Close() error {
	return d.DB.Close()
}
