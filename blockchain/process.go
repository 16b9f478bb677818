// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/wire"
)

// Status describes the outcome of submitting a block to TryAppend.
type Status int

const (
	// StatusAccepted means the block extended the canonical tip.
	StatusAccepted Status = iota

	// StatusOrphaned means the block is structurally valid but its
	// parent is unknown or not the current tip.  It was retained in the
	// fork set for later reconciliation.
	StatusOrphaned

	// StatusRejected means the block violates a block invariant and was
	// discarded.  The accompanying RuleError names the reason.
	StatusRejected

	// StatusKnown means the block is already present in the canonical
	// chain or the orphan pool.  Duplicate gossip deliveries resolve to
	// this status without being treated as errors.
	StatusKnown
)

// String returns the Status as a human-readable name.
func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusOrphaned:
		return "orphaned"
	case StatusRejected:
		return "rejected"
	case StatusKnown:
		return "known"
	}
	return fmt.Sprintf("unknown status (%d)", int(s))
}

// TryAppend is the main workhorse for handling insertion of new blocks into
// the chain.  It enforces the block invariants, classifies duplicates,
// handles orphans, and advances the canonical tip atomically when the block
// connects.
//
// Only StatusAccepted mutates canonical state.  Every other status leaves
// the tip height and hash exactly as they were, which is what makes
// concurrent batches from different peers safe regardless of arrival order.
//
// A non-nil error alongside StatusAccepted means the submitted block itself
// connected but the store failed while connecting dependent orphans.
// Callers must treat that as a store failure, not a property of the block.
//
// This function is safe for concurrent access.
func (b *BlockChain) TryAppend(block *wire.Block) (Status, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	blockHash := block.Hash
	log.Tracef("Processing block %v", blockHash)

	// The block might be a duplicate delivery via gossip.  Treating
	// duplicates as a distinct non-error status keeps a batch containing
	// them from aborting.
	if b.IsKnownOrphan(&blockHash) {
		log.Debugf("Already have block (orphan) %v", blockHash)
		return StatusKnown, nil
	}
	snapshot, err := b.db.Snapshot()
	if err != nil {
		return StatusRejected, err
	}
	exists, err := dbHasBlock(snapshot, &blockHash)
	snapshot.Release()
	if err != nil {
		return StatusRejected, err
	}
	if exists {
		log.Debugf("Already have block %v", blockHash)
		return StatusKnown, nil
	}

	// Perform the context-free invariant checks before the block can
	// touch any state.
	if err := checkBlockSanity(block, b.verifier); err != nil {
		return StatusRejected, err
	}

	state := b.BestSnapshot()
	if block.PrevHash.IsEqual(&state.Hash) {
		// The block claims to extend the tip, so its height must be
		// exactly one past it.
		if block.Height != state.Height+1 {
			str := fmt.Sprintf("block %v has height %d, parent "+
				"tip height is %d", blockHash, block.Height,
				state.Height)
			return StatusRejected, ruleError(ErrHeightMismatch, str)
		}

		if err := b.connectBlock(block); err != nil {
			return StatusRejected, err
		}
		log.Debugf("Accepted block %v (height %d)", blockHash,
			block.Height)

		// Connecting the block may allow previously orphaned blocks
		// to connect as well.
		if err := b.processOrphans(); err != nil {
			return StatusAccepted, err
		}
		return StatusAccepted, nil
	}

	// The parent is unknown or not the current tip.  Orphans attaching
	// far below the tip are beyond the reorganization horizon and are
	// dropped instead of retained.
	if b.maxForkDepth > 0 &&
		block.Height <= state.Height-int64(b.maxForkDepth) {

		log.Debugf("Dropping orphan block %v (height %d) beyond fork "+
			"horizon of tip %d", blockHash, block.Height,
			state.Height)
		return StatusOrphaned, nil
	}

	log.Debugf("Adding orphan block %v (height %d) with parent %v",
		blockHash, block.Height, block.PrevHash)
	b.addOrphanBlock(block)
	return StatusOrphaned, nil
}

// connectBlock commits the block as the new canonical tip in a single
// storage transaction and then publishes the new best state to readers.
// The caller must hold chainLock.
func (b *BlockChain) connectBlock(block *wire.Block) error {
	tx, err := b.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := dbPutBlock(tx, block); err != nil {
		return err
	}
	err = dbPutBestChainState(tx, bestChainState{
		hash:   block.Hash,
		height: block.Height,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	b.setBestSnapshot(&BestState{Hash: block.Hash, Height: block.Height})
	return nil
}

// processOrphans connects any orphan blocks that now extend the canonical
// tip and repeats until no orphan does.  When multiple orphans compete for
// the same parent the one with the lexicographically smallest hash is
// connected, matching the reconciliation tie-break so every honest node
// converges on the same chain.  The caller must hold chainLock.
func (b *BlockChain) processOrphans() error {
	for {
		state := b.BestSnapshot()

		b.orphanLock.RLock()
		children := b.prevOrphans[state.Hash]
		var next *orphanBlock
		for _, child := range children {
			if child == nil || child.block.Height != state.Height+1 {
				continue
			}
			if next == nil || bytes.Compare(child.block.Hash[:],
				next.block.Hash[:]) < 0 {
				next = child
			}
		}
		b.orphanLock.RUnlock()

		if next == nil {
			return nil
		}

		b.removeOrphanBlock(next)
		if err := b.connectBlock(next.block); err != nil {
			return err
		}
		log.Debugf("Connected orphan block %v (height %d)",
			next.block.Hash, next.block.Height)
	}
}

// maybePruneOrphans removes any orphans below the reorganization horizon of
// the given tip height.  Called after a reorganization shifts the horizon.
// The caller must hold chainLock.
func (b *BlockChain) maybePruneOrphans(tipHeight int64) {
	if b.maxForkDepth <= 0 {
		return
	}
	horizon := tipHeight - int64(b.maxForkDepth)

	b.orphanLock.RLock()
	var stale []*orphanBlock
	for _, oBlock := range b.orphans {
		if oBlock.block.Height <= horizon {
			stale = append(stale, oBlock)
		}
	}
	b.orphanLock.RUnlock()

	for _, oBlock := range stale {
		b.removeOrphanBlock(oBlock)
	}
}

// chainhashLess reports whether a sorts lexicographically before b over the
// raw digest bytes.  It is the deterministic tie-break shared by orphan
// connection and fork selection.
func chainhashLess(a, c *chainhash.Hash) bool {
	return bytes.Compare(a[:], c[:]) < 0
}
