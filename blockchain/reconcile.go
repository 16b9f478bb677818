// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sort"

	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/wire"
)

// BestCandidate is the reconciliation policy: given the canonical tip and a
// set of candidate fork segments it selects the chain to adopt.
//
// The rule is greatest cumulative height wins; an exact tie is broken in
// favor of the lexicographically smaller tip hash so all honest nodes
// converge identically.  A candidate is only eligible when every block in it
// independently satisfies the block invariants; a segment containing an
// invalid block is discarded entirely, never partially adopted.  The current
// canonical chain is an implicit candidate.
//
// The returned segment is the winning fork, or nil when the canonical chain
// itself wins ("no change").  This function is deterministic and side-effect
// free so its outcome is independently reproducible.
func BestCandidate(tip *BestState, candidates [][]*wire.Block,
	verifier identity.Verifier) []*wire.Block {

	bestHeight := tip.Height
	bestHash := tip.Hash
	var winner []*wire.Block

	for _, segment := range candidates {
		if checkSegmentSanity(segment, verifier) != nil {
			continue
		}
		segTip := segment[len(segment)-1]
		if segTip.Height < bestHeight {
			continue
		}
		if segTip.Height == bestHeight &&
			!chainhashLess(&segTip.Hash, &bestHash) {
			continue
		}
		bestHeight = segTip.Height
		bestHash = segTip.Hash
		winner = segment
	}
	return winner
}

// ForkCandidates assembles the fork segments currently known to the orphan
// pool that attach to the canonical chain.  Each returned segment is an
// ascending parent-linked sequence whose first block's parent is a canonical
// block.  Segments are returned in a deterministic order.
//
// This function is safe for concurrent access.
func (b *BlockChain) ForkCandidates() ([][]*wire.Block, error) {
	snapshot, err := b.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snapshot.Release()

	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()

	var candidates [][]*wire.Block
	for hash, oBlock := range b.orphans {
		// Only walk back from segment leaves: orphans that no other
		// orphan builds on.
		if len(b.prevOrphans[hash]) > 0 {
			continue
		}

		// Walk parent links through the orphan pool to the segment
		// root.
		segment := []*wire.Block{oBlock.block}
		for {
			parent, exists := b.orphans[segment[0].PrevHash]
			if !exists {
				break
			}
			segment = append([]*wire.Block{parent.block}, segment...)
		}

		// The segment is only a reorganization candidate when its
		// root attaches to the canonical chain.
		attached, err := dbHasBlock(snapshot, &segment[0].PrevHash)
		if err != nil {
			return nil, err
		}
		if !attached {
			continue
		}
		candidates = append(candidates, segment)
	}

	// Deterministic order so repeated invocations on the same fork set
	// behave identically.
	sort.Slice(candidates, func(i, j int) bool {
		iTip := candidates[i][len(candidates[i])-1]
		jTip := candidates[j][len(candidates[j])-1]
		return chainhashLess(&iTip.Hash, &jTip.Hash)
	})
	return candidates, nil
}

// Reconcile runs the reconciliation policy over the known fork segments and
// reorganizes to the winner when one beats the canonical chain.  It reports
// whether a reorganization was applied.
//
// This function is safe for concurrent access.
func (b *BlockChain) Reconcile() (bool, error) {
	candidates, err := b.ForkCandidates()
	if err != nil {
		return false, err
	}
	if len(candidates) == 0 {
		return false, nil
	}

	winner := BestCandidate(b.BestSnapshot(), candidates, b.verifier)
	if winner == nil {
		return false, nil
	}

	if err := b.ReorganizeTo(winner); err != nil {
		// Losing a photo-finish race with a concurrent append is not
		// a reconciliation failure; the next cycle re-evaluates.
		if rErr, ok := err.(RuleError); ok &&
			rErr.ErrorCode == ErrWorseChain {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReorganizeTo atomically replaces the canonical chain suffix with the given
// fork segment.  The segment must be an ascending parent-linked sequence of
// valid blocks attaching to a canonical block, and the resulting tip must
// beat the current one under the reconciliation ordering.  Displaced
// canonical blocks move into the orphan pool so the previous chain remains a
// candidate for a future reorganization.
//
// The replacement is all-or-nothing: it is applied in a single storage
// transaction and the published best state is only updated after the commit
// succeeds, so readers never observe a partially applied reorganization.
//
// This function is safe for concurrent access.
func (b *BlockChain) ReorganizeTo(segment []*wire.Block) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if err := checkSegmentSanity(segment, b.verifier); err != nil {
		return err
	}

	snapshot, err := b.db.Snapshot()
	if err != nil {
		return err
	}
	defer snapshot.Release()

	// The segment must attach to the canonical chain.
	root := segment[0]
	parent, err := dbFetchBlockByHash(snapshot, &root.PrevHash)
	if err != nil {
		if _, ok := err.(HashError); ok {
			str := fmt.Sprintf("fork segment parent %v is not in "+
				"the canonical chain", root.PrevHash)
			return ruleError(ErrUnknownParent, str)
		}
		return err
	}
	if root.Height != parent.Height+1 {
		str := fmt.Sprintf("fork segment root %v has height %d, "+
			"attach point height is %d", root.Hash, root.Height,
			parent.Height)
		return ruleError(ErrHeightMismatch, str)
	}

	state := b.BestSnapshot()
	forkHeight := parent.Height

	baseHeight, err := dbFetchBaseHeight(snapshot)
	if err != nil {
		return err
	}
	if forkHeight < baseHeight {
		str := fmt.Sprintf("fork point %d is below the pruned base %d",
			forkHeight, baseHeight)
		return ruleError(ErrForkTooDeep, str)
	}
	if b.maxForkDepth > 0 &&
		state.Height-forkHeight > int64(b.maxForkDepth) {

		str := fmt.Sprintf("fork point %d is more than %d below the "+
			"tip %d", forkHeight, b.maxForkDepth, state.Height)
		return ruleError(ErrForkTooDeep, str)
	}

	// The resulting tip must beat the current one: strictly higher, or
	// equal height with the lexicographically smaller hash.
	newTip := segment[len(segment)-1]
	if newTip.Height < state.Height ||
		(newTip.Height == state.Height &&
			!chainhashLess(&newTip.Hash, &state.Hash)) {

		str := fmt.Sprintf("fork tip %v (height %d) does not beat "+
			"canonical tip %v (height %d)", newTip.Hash,
			newTip.Height, state.Hash, state.Height)
		return ruleError(ErrWorseChain, str)
	}

	log.Infof("Reorganizing chain from tip %v (height %d) to %v (height "+
		"%d), fork point %d", state.Hash, state.Height, newTip.Hash,
		newTip.Height, forkHeight)

	// Collect and detach the displaced canonical suffix and attach the
	// segment in one transaction.
	tx, err := b.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	var displaced []*wire.Block
	for height := state.Height; height > forkHeight; height-- {
		hash, err := dbFetchHashByHeight(snapshot, height)
		if err != nil {
			return err
		}
		block, err := dbFetchBlockByHash(snapshot, hash)
		if err != nil {
			return err
		}
		if err := dbRemoveBlock(tx, block); err != nil {
			return err
		}
		displaced = append(displaced, block)
	}
	for _, block := range segment {
		if err := dbPutBlock(tx, block); err != nil {
			return err
		}
	}
	err = dbPutBestChainState(tx, bestChainState{
		hash:   newTip.Hash,
		height: newTip.Height,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	b.setBestSnapshot(&BestState{
		Hash:   newTip.Hash,
		Height: newTip.Height,
	})

	// The adopted blocks leave the orphan pool and the displaced ones
	// enter it, so a later reorganization can restore them.
	b.orphanLock.RLock()
	var adopted []*orphanBlock
	for _, block := range segment {
		if oBlock, exists := b.orphans[block.Hash]; exists {
			adopted = append(adopted, oBlock)
		}
	}
	b.orphanLock.RUnlock()
	for _, oBlock := range adopted {
		b.removeOrphanBlock(oBlock)
	}
	for _, block := range displaced {
		b.addOrphanBlock(block)
	}
	b.maybePruneOrphans(newTip.Height)

	return nil
}
