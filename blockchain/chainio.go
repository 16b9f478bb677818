// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/database/engine"
	"github.com/rustchain-network/rustsyncd/wire"
)

// The chain store uses the following key/value schema:
//
//   b<hash>           -> serialized block (canonical blocks only)
//   h<height BE64>    -> block hash (canonical height index)
//   tipstate          -> tip hash || tip height
//   baseheight        -> lowest retained height (pruning floor)
//   dbinfo            -> store version || creation time
const (
	// latestDbVersion is the database schema version understood by this
	// code.
	latestDbVersion = 1
)

var (
	blockKeyPrefix    = []byte("b")
	heightKeyPrefix   = []byte("h")
	tipStateKeyName   = []byte("tipstate")
	baseHeightKeyName = []byte("baseheight")
	dbInfoKeyName     = []byte("dbinfo")
)

// blockKey returns the store key for the block with the given hash.
func blockKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 0, len(blockKeyPrefix)+chainhash.HashSize)
	key = append(key, blockKeyPrefix...)
	return append(key, hash[:]...)
}

// heightKey returns the height index key for the given height.
func heightKey(height int64) []byte {
	key := make([]byte, len(heightKeyPrefix)+8)
	copy(key, heightKeyPrefix)
	binary.BigEndian.PutUint64(key[len(heightKeyPrefix):], uint64(height))
	return key
}

// bestChainState represents the persisted canonical tip.
type bestChainState struct {
	hash   chainhash.Hash
	height int64
}

// serializeBestChainState serializes the tip state record.
func serializeBestChainState(state bestChainState) []byte {
	buf := make([]byte, chainhash.HashSize+8)
	copy(buf, state.hash[:])
	binary.BigEndian.PutUint64(buf[chainhash.HashSize:], uint64(state.height))
	return buf
}

// deserializeBestChainState deserializes the tip state record.  Corruption
// surfaces as an AssertError since it means the store is unusable.
func deserializeBestChainState(serialized []byte) (bestChainState, error) {
	var state bestChainState
	if len(serialized) != chainhash.HashSize+8 {
		return state, AssertError(fmt.Sprintf("corrupt tip state "+
			"record of %d bytes", len(serialized)))
	}
	copy(state.hash[:], serialized[:chainhash.HashSize])
	state.height = int64(binary.BigEndian.Uint64(
		serialized[chainhash.HashSize:]))
	return state, nil
}

// serializeDbInfo serializes the store metadata record.
func serializeDbInfo(version uint32, created time.Time) []byte {
	buf := make([]byte, 4+8)
	binary.BigEndian.PutUint32(buf, version)
	binary.BigEndian.PutUint64(buf[4:], uint64(created.Unix()))
	return buf
}

// deserializeDbInfo returns the schema version from the store metadata
// record.
func deserializeDbInfo(serialized []byte) (uint32, error) {
	if len(serialized) < 4 {
		return 0, AssertError(fmt.Sprintf("corrupt db info record of "+
			"%d bytes", len(serialized)))
	}
	return binary.BigEndian.Uint32(serialized), nil
}

// serializeBlock returns the stable binary encoding of a block.
func serializeBlock(block *wire.Block) ([]byte, error) {
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeBlock decodes a block from its stable binary encoding.
// Corruption surfaces as an AssertError since stored blocks were validated
// on the way in.
func deserializeBlock(serialized []byte) (*wire.Block, error) {
	var block wire.Block
	if err := block.Deserialize(bytes.NewReader(serialized)); err != nil {
		return nil, AssertError(fmt.Sprintf("corrupt block record: %v",
			err))
	}
	return &block, nil
}

// dbPutBlock stores the block record and its canonical height index entry in
// the given transaction.
func dbPutBlock(tx engine.Transaction, block *wire.Block) error {
	serialized, err := serializeBlock(block)
	if err != nil {
		return err
	}
	if err := tx.Put(blockKey(&block.Hash), serialized); err != nil {
		return err
	}
	return tx.Put(heightKey(block.Height), block.Hash[:])
}

// dbRemoveBlock removes the block record and its canonical height index
// entry in the given transaction.
func dbRemoveBlock(tx engine.Transaction, block *wire.Block) error {
	if err := tx.Delete(blockKey(&block.Hash)); err != nil {
		return err
	}
	return tx.Delete(heightKey(block.Height))
}

// dbPutBestChainState stores the canonical tip record in the given
// transaction.
func dbPutBestChainState(tx engine.Transaction, state bestChainState) error {
	return tx.Put(tipStateKeyName, serializeBestChainState(state))
}

// dbHasBlock reports whether the block with the given hash is in the
// canonical chain.
func dbHasBlock(snapshot engine.Snapshot, hash *chainhash.Hash) (bool, error) {
	return snapshot.Has(blockKey(hash))
}

// dbFetchBlockByHash retrieves the canonical block with the given hash.  A
// HashError is returned when there is no such block.
func dbFetchBlockByHash(snapshot engine.Snapshot, hash *chainhash.Hash) (*wire.Block, error) {
	key := blockKey(hash)
	exists, err := snapshot.Has(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, HashError(hash.String())
	}
	serialized, err := snapshot.Get(key)
	if err != nil {
		return nil, err
	}
	return deserializeBlock(serialized)
}

// dbFetchHashByHeight retrieves the canonical block hash at the given
// height.
func dbFetchHashByHeight(snapshot engine.Snapshot, height int64) (*chainhash.Hash, error) {
	key := heightKey(height)
	exists, err := snapshot.Has(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, AssertError(fmt.Sprintf("no canonical hash at "+
			"height %d", height))
	}
	serialized, err := snapshot.Get(key)
	if err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHash(serialized)
	if err != nil {
		return nil, AssertError(fmt.Sprintf("corrupt height index at "+
			"height %d: %v", height, err))
	}
	return hash, nil
}

// dbFetchBestChainState retrieves the canonical tip record.  The boolean
// reports whether the record exists, which it does not in a freshly created
// store.
func dbFetchBestChainState(snapshot engine.Snapshot) (bestChainState, bool, error) {
	exists, err := snapshot.Has(tipStateKeyName)
	if err != nil {
		return bestChainState{}, false, err
	}
	if !exists {
		return bestChainState{}, false, nil
	}
	serialized, err := snapshot.Get(tipStateKeyName)
	if err != nil {
		return bestChainState{}, false, err
	}
	state, err := deserializeBestChainState(serialized)
	return state, err == nil, err
}

// dbFetchBaseHeight retrieves the lowest retained height.
func dbFetchBaseHeight(snapshot engine.Snapshot) (int64, error) {
	exists, err := snapshot.Has(baseHeightKeyName)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	serialized, err := snapshot.Get(baseHeightKeyName)
	if err != nil {
		return 0, err
	}
	if len(serialized) != 8 {
		return 0, AssertError(fmt.Sprintf("corrupt base height "+
			"record of %d bytes", len(serialized)))
	}
	return int64(binary.BigEndian.Uint64(serialized)), nil
}
