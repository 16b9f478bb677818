// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/chaincfg"
	"github.com/rustchain-network/rustsyncd/database/engine"
	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/wire"
)

const (
	// defaultMaxOrphans is the default maximum number of orphan blocks
	// retained in memory awaiting reconciliation.  Exceeding the bound
	// evicts the oldest orphan.
	defaultMaxOrphans = 100

	// defaultMaxForkDepth is the default maximum depth below the
	// canonical tip a fork segment may attach at and still be adopted by
	// a reorganization.
	defaultMaxForkDepth = 100

	// orphanExpiration is how long an orphan block is retained before it
	// is lazily removed.
	orphanExpiration = time.Hour
)

// BestState houses information about the current canonical tip.  It is a
// consistent pair: the height is always the height of the block with the
// given hash, even while a reorganization is in flight.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner; the returned instance must be treated as
// immutable since it is shared by all callers.
type BestState struct {
	// Hash is the hash of the canonical tip block.
	Hash chainhash.Hash

	// Height is the height of the canonical tip block.
	Height int64
}

// orphanBlock represents a block for which the parent is not yet the
// canonical tip.  It is kept in the orphan pool with an expiration so
// abandoned forks do not pin memory.
type orphanBlock struct {
	block      *wire.Block
	expiration time.Time
}

// Config houses the configuration and collaborators needed to create the
// chain store with New.
type Config struct {
	// DB is the storage engine the chain is persisted to.  It must not
	// be nil.
	DB engine.Engine

	// ChainParams identifies the network the chain belongs to and
	// supplies the genesis block.  It must not be nil.
	ChainParams *chaincfg.Params

	// Verifier verifies producer signatures over block payloads.  It
	// must not be nil.
	Verifier identity.Verifier

	// MaxOrphans limits the number of orphan blocks held in memory.
	// Zero selects the default.
	MaxOrphans int

	// MaxForkDepth limits how far below the canonical tip a fork segment
	// may attach and still be reorganized to.  Zero selects the default;
	// a negative value disables the bound.
	MaxForkDepth int
}

// BlockChain provides functions for working with the rustchain block chain:
// admitting new blocks, locating blocks and ranges, orphan handling, and
// reorganizing to a winning fork.
type BlockChain struct {
	// The following fields are set when the instance is created and are
	// not changed afterward, so they do not require locking.
	db           engine.Engine
	chainParams  *chaincfg.Params
	verifier     identity.Verifier
	maxOrphans   int
	maxForkDepth int

	// chainLock serializes all mutation of the canonical chain, which
	// keeps connect and reorganize sections single-writer.
	chainLock sync.Mutex

	// These fields house the memory view of the canonical tip.  They are
	// protected separately from chainLock so O(1) tip reads never wait
	// on storage work.
	stateLock     sync.RWMutex
	stateSnapshot *BestState

	// These fields house the orphan pool.  The pool is owned exclusively
	// by the chain store and mutated only while chainLock is held, with
	// orphanLock additionally guarding the maps for concurrent readers.
	orphanLock   sync.RWMutex
	orphans      map[chainhash.Hash]*orphanBlock
	prevOrphans  map[chainhash.Hash][]*orphanBlock
	oldestOrphan *orphanBlock
}

// New returns a BlockChain instance using the provided configuration
// details.  A freshly created store is initialized with the network genesis
// block.
func New(config *Config) (*BlockChain, error) {
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if config.Verifier == nil {
		return nil, AssertError("blockchain.New verifier is nil")
	}

	maxOrphans := config.MaxOrphans
	if maxOrphans == 0 {
		maxOrphans = defaultMaxOrphans
	}
	maxForkDepth := config.MaxForkDepth
	if maxForkDepth == 0 {
		maxForkDepth = defaultMaxForkDepth
	}

	b := &BlockChain{
		db:           config.DB,
		chainParams:  config.ChainParams,
		verifier:     config.Verifier,
		maxOrphans:   maxOrphans,
		maxForkDepth: maxForkDepth,
		orphans:      make(map[chainhash.Hash]*orphanBlock),
		prevOrphans:  make(map[chainhash.Hash][]*orphanBlock),
	}
	if err := b.initChainState(); err != nil {
		return nil, err
	}

	state := b.BestSnapshot()
	log.Infof("Chain state (height %d, hash %v)", state.Height, state.Hash)
	return b, nil
}

// initChainState loads the persisted canonical tip, creating a fresh store
// containing only the genesis block when no state exists yet.
func (b *BlockChain) initChainState() error {
	snapshot, err := b.db.Snapshot()
	if err != nil {
		return err
	}
	state, initialized, err := dbFetchBestChainState(snapshot)
	snapshot.Release()
	if err != nil {
		return err
	}

	if initialized {
		b.stateSnapshot = &BestState{
			Hash:   state.hash,
			Height: state.height,
		}
		return nil
	}

	// Create the initial store state with the genesis block.
	genesis := b.chainParams.GenesisBlock
	log.Infof("Initializing chain store with genesis block %v",
		b.chainParams.GenesisHash)

	tx, err := b.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	err = tx.Put(dbInfoKeyName, serializeDbInfo(latestDbVersion, time.Now()))
	if err != nil {
		return err
	}
	if err := dbPutBlock(tx, genesis); err != nil {
		return err
	}
	err = dbPutBestChainState(tx, bestChainState{
		hash:   genesis.Hash,
		height: genesis.Height,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	b.stateSnapshot = &BestState{
		Hash:   genesis.Hash,
		Height: genesis.Height,
	}
	return nil
}

// BestSnapshot returns information about the canonical tip as of the most
// recently fully applied mutation.  The returned instance must be treated
// as immutable.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// setBestSnapshot publishes a new canonical tip to readers.  The caller
// must hold chainLock and have already committed the matching storage
// transaction.
func (b *BlockChain) setBestSnapshot(state *BestState) {
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()
}

// TipHeight returns the height of the canonical tip in O(1).
//
// This function is safe for concurrent access.
func (b *BlockChain) TipHeight() int64 {
	return b.BestSnapshot().Height
}

// TipHash returns the hash of the canonical tip in O(1).
//
// This function is safe for concurrent access.
func (b *BlockChain) TipHash() chainhash.Hash {
	return b.BestSnapshot().Hash
}

// MaxForkDepth returns the deepest fork point below the canonical tip the
// chain will reorganize across.
func (b *BlockChain) MaxForkDepth() int {
	return b.maxForkDepth
}

// GetBlock returns the canonical block with the given hash.  A HashError is
// returned when there is no such block in the canonical chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetBlock(hash *chainhash.Hash) (*wire.Block, error) {
	snapshot, err := b.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snapshot.Release()
	return dbFetchBlockByHash(snapshot, hash)
}

// HaveBlock reports whether the block with the given hash is known to the
// chain, either as part of the canonical chain or in the orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) (bool, error) {
	if b.IsKnownOrphan(hash) {
		return true, nil
	}
	snapshot, err := b.db.Snapshot()
	if err != nil {
		return false, err
	}
	defer snapshot.Release()
	return dbHasBlock(snapshot, hash)
}

// GetRange returns the canonical blocks with heights in the inclusive range
// [fromHeight, toHeight] in ascending height order.  A RangeError is
// returned when any part of the requested range is below the pruned base of
// the store or above the canonical tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetRange(fromHeight, toHeight int64) ([]*wire.Block, error) {
	if fromHeight > toHeight || fromHeight < 0 {
		return nil, rangeError(fromHeight, toHeight, "malformed range")
	}

	// The tip and base are read from the same storage snapshot the
	// blocks are, so a concurrent reorganization cannot produce a torn
	// result.
	snapshot, err := b.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snapshot.Release()

	state, initialized, err := dbFetchBestChainState(snapshot)
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, AssertError("chain store has no tip state")
	}
	baseHeight, err := dbFetchBaseHeight(snapshot)
	if err != nil {
		return nil, err
	}
	if fromHeight < baseHeight {
		return nil, rangeError(fromHeight, toHeight, fmt.Sprintf(
			"heights below %d have been pruned", baseHeight))
	}
	if toHeight > state.height {
		return nil, rangeError(fromHeight, toHeight, fmt.Sprintf(
			"height beyond canonical tip %d", state.height))
	}

	blocks := make([]*wire.Block, 0, toHeight-fromHeight+1)
	for height := fromHeight; height <= toHeight; height++ {
		hash, err := dbFetchHashByHeight(snapshot, height)
		if err != nil {
			return nil, err
		}
		block, err := dbFetchBlockByHash(snapshot, hash)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// IsKnownOrphan reports whether the block with the given hash is currently
// in the orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsKnownOrphan(hash *chainhash.Hash) bool {
	b.orphanLock.RLock()
	_, exists := b.orphans[*hash]
	b.orphanLock.RUnlock()
	return exists
}

// OrphanCount returns the number of blocks currently in the orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) OrphanCount() int {
	b.orphanLock.RLock()
	count := len(b.orphans)
	b.orphanLock.RUnlock()
	return count
}

// removeOrphanBlock removes the passed orphan block from the orphan pool
// and previous orphan index.
func (b *BlockChain) removeOrphanBlock(orphan *orphanBlock) {
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	orphanHash := orphan.block.Hash
	delete(b.orphans, orphanHash)

	// Remove the reference from the previous orphan index too.  An
	// indexing for loop is intentionally used over a range here as range
	// does not reevaluate the slice on each iteration nor does it adjust
	// the index for the modified slice.
	prevHash := orphan.block.PrevHash
	orphans := b.prevOrphans[prevHash]
	for i := 0; i < len(orphans); i++ {
		if orphans[i].block.Hash.IsEqual(&orphanHash) {
			copy(orphans[i:], orphans[i+1:])
			orphans[len(orphans)-1] = nil
			orphans = orphans[:len(orphans)-1]
			i--
		}
	}
	b.prevOrphans[prevHash] = orphans

	// Remove the map entry altogether if there are no longer any orphans
	// which depend on the parent hash.
	if len(b.prevOrphans[prevHash]) == 0 {
		delete(b.prevOrphans, prevHash)
	}
}

// addOrphanBlock adds the passed block (which is already determined to be an
// orphan prior to calling this function) to the orphan pool.  It lazily
// cleans up any expired blocks so a separate cleanup poller doesn't need to
// be run.  It also imposes a maximum limit on the number of outstanding
// orphan blocks and evicts the oldest received orphan block when the limit
// is exceeded.
func (b *BlockChain) addOrphanBlock(block *wire.Block) {
	// Remove expired orphan blocks.
	for _, oBlock := range b.orphans {
		if time.Now().After(oBlock.expiration) {
			b.removeOrphanBlock(oBlock)
			continue
		}

		// Update the oldest orphan block pointer so it can be
		// discarded in case the orphan pool fills up.
		if b.oldestOrphan == nil ||
			oBlock.expiration.Before(b.oldestOrphan.expiration) {
			b.oldestOrphan = oBlock
		}
	}

	// Limit orphan blocks to prevent memory exhaustion.
	if len(b.orphans)+1 > b.maxOrphans {
		b.removeOrphanBlock(b.oldestOrphan)
		b.oldestOrphan = nil
	}

	// Protect concurrent access.  This is intentionally done here
	// instead of near the top since removeOrphanBlock does its own
	// locking and the range iterator is not invalidated by removing map
	// entries.
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	oBlock := &orphanBlock{
		block:      block,
		expiration: time.Now().Add(orphanExpiration),
	}
	b.orphans[block.Hash] = oBlock

	// Add to previous hash lookup index for faster dependency lookups.
	b.prevOrphans[block.PrevHash] = append(b.prevOrphans[block.PrevHash],
		oBlock)
}
