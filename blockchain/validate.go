// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/wire"
)

// checkBlockSanity performs the context-free block invariant checks: the
// declared hash must match the recomputed digest of the block contents and
// the producer signature must verify over the payload.  A violation is
// returned as a RuleError with the matching code.
func checkBlockSanity(block *wire.Block, verifier identity.Verifier) error {
	if block.Height < 0 {
		str := fmt.Sprintf("block %v has negative height %d",
			block.Hash, block.Height)
		return ruleError(ErrHeightMismatch, str)
	}

	digest := block.BlockHash()
	if !digest.IsEqual(&block.Hash) {
		str := fmt.Sprintf("block digest of %v does not match "+
			"declared hash %v", digest, block.Hash)
		return ruleError(ErrBadDigest, str)
	}

	if !verifier.Verify(block.Payload, block.Signature, block.Producer.PubKey) {
		str := fmt.Sprintf("block %v producer signature does not "+
			"verify", block.Hash)
		return ruleError(ErrBadSignature, str)
	}

	return nil
}

// checkSegmentSanity verifies that segment is an unbroken parent-linked
// sequence of individually valid blocks with strictly increasing heights.
// Any violation discards the segment entirely; a fork segment is never
// partially adopted.
func checkSegmentSanity(segment []*wire.Block, verifier identity.Verifier) error {
	if len(segment) == 0 {
		return ruleError(ErrInvalidSegment, "empty fork segment")
	}

	for i, block := range segment {
		if err := checkBlockSanity(block, verifier); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := segment[i-1]
		if !block.PrevHash.IsEqual(&prev.Hash) {
			str := fmt.Sprintf("segment block %v does not link to "+
				"predecessor %v", block.Hash, prev.Hash)
			return ruleError(ErrInvalidSegment, str)
		}
		if block.Height != prev.Height+1 {
			str := fmt.Sprintf("segment block %v has height %d, "+
				"parent height is %d", block.Hash, block.Height,
				prev.Height)
			return ruleError(ErrHeightMismatch, str)
		}
	}
	return nil
}
