// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"path/filepath"
	"testing"

	"github.com/rustchain-network/rustsyncd/chaincfg"
	"github.com/rustchain-network/rustsyncd/database/engine/leveldb"
	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/wire"
)

// assertRuleError fails the test unless err is a RuleError carrying the
// wanted code.
func assertRuleError(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	rErr, ok := err.(RuleError)
	if !ok {
		t.Fatalf("got error %v (%T), want RuleError", err, err)
	}
	if rErr.ErrorCode != want {
		t.Fatalf("got rule error code %v, want %v", rErr.ErrorCode,
			want)
	}
}

// TestTryAppendDuplicates tests that resubmitting canonical blocks and
// retained orphans reports StatusKnown without error and without moving the
// tip.
func TestTryAppendDuplicates(t *testing.T) {
	chain := chainSetup(t)
	gen := newBlockGen(t)

	blocks := gen.makeChain(chaincfg.SimNetParams.GenesisBlock, 3, "main")
	for _, block := range blocks {
		mustAppend(t, chain, block, StatusAccepted)
	}

	// Canonical duplicates, including the genesis block itself.
	mustAppend(t, chain, chaincfg.SimNetParams.GenesisBlock, StatusKnown)
	for _, block := range blocks {
		mustAppend(t, chain, block, StatusKnown)
	}

	// An orphan duplicate.
	orphan := gen.makeBlock(blocks[2].Hash, 5, "detached")
	mustAppend(t, chain, orphan, StatusOrphaned)
	mustAppend(t, chain, orphan, StatusKnown)

	if got := chain.TipHeight(); got != 3 {
		t.Fatalf("TipHeight: got %d, want 3", got)
	}
	if got := chain.OrphanCount(); got != 1 {
		t.Fatalf("OrphanCount: got %d, want 1", got)
	}
}

// TestTryAppendRejections tests each block invariant violation and that a
// rejection never mutates canonical state.
func TestTryAppendRejections(t *testing.T) {
	chain := chainSetup(t)
	gen := newBlockGen(t)

	base := gen.makeChain(chaincfg.SimNetParams.GenesisBlock, 2, "main")
	for _, block := range base {
		mustAppend(t, chain, block, StatusAccepted)
	}
	tipHash := chain.TipHash()

	tests := []struct {
		name  string
		block func() *wire.Block
		code  ErrorCode
	}{
		{
			name: "tampered payload breaks the digest",
			block: func() *wire.Block {
				block := gen.makeBlock(tipHash, 3, "valid")
				block.Payload = []byte("tampered")
				return block
			},
			code: ErrBadDigest,
		},
		{
			name: "tampered signature",
			block: func() *wire.Block {
				block := gen.makeBlock(tipHash, 3, "valid")
				block.Signature[0] ^= 0x01
				// Recompute so only the signature check can
				// trip.
				block.Hash = block.BlockHash()
				return block
			},
			code: ErrBadSignature,
		},
		{
			name: "negative height",
			block: func() *wire.Block {
				return gen.makeBlock(tipHash, -1, "negative")
			},
			code: ErrHeightMismatch,
		},
		{
			name: "tip child skips a height",
			block: func() *wire.Block {
				return gen.makeBlock(tipHash, 4, "skipped")
			},
			code: ErrHeightMismatch,
		},
	}

	for _, test := range tests {
		status, err := chain.TryAppend(test.block())
		if status != StatusRejected {
			t.Errorf("%s: got status %v, want %v", test.name,
				status, StatusRejected)
			continue
		}
		if rErr, ok := err.(RuleError); !ok ||
			rErr.ErrorCode != test.code {

			t.Errorf("%s: got error %v, want code %v", test.name,
				err, test.code)
		}
	}

	if got := chain.TipHeight(); got != 2 {
		t.Fatalf("TipHeight after rejections: got %d, want 2", got)
	}
	if got := chain.TipHash(); !got.IsEqual(&base[1].Hash) {
		t.Fatalf("TipHash after rejections: got %v, want %v", got,
			base[1].Hash)
	}
}

// TestTryAppendOrphanConnect tests that blocks delivered out of order are
// retained as orphans and connected once their ancestry arrives.
func TestTryAppendOrphanConnect(t *testing.T) {
	chain := chainSetup(t)
	gen := newBlockGen(t)

	blocks := gen.makeChain(chaincfg.SimNetParams.GenesisBlock, 4, "main")

	// Deliver the chain backwards: everything but the first block must
	// orphan.
	for i := len(blocks) - 1; i >= 1; i-- {
		mustAppend(t, chain, blocks[i], StatusOrphaned)
		if !chain.IsKnownOrphan(&blocks[i].Hash) {
			t.Fatalf("block %v not retained as orphan",
				blocks[i].Hash)
		}
	}
	if got := chain.TipHeight(); got != 0 {
		t.Fatalf("TipHeight before connect: got %d, want 0", got)
	}

	// The missing first block connects the whole pending chain.
	mustAppend(t, chain, blocks[0], StatusAccepted)
	if got := chain.TipHeight(); got != 4 {
		t.Fatalf("TipHeight after connect: got %d, want 4", got)
	}
	if got := chain.TipHash(); !got.IsEqual(&blocks[3].Hash) {
		t.Fatalf("TipHash after connect: got %v, want %v", got,
			blocks[3].Hash)
	}
	if got := chain.OrphanCount(); got != 0 {
		t.Fatalf("OrphanCount after connect: got %d, want 0", got)
	}
}

// TestTryAppendCompetingOrphans tests that when two orphans contend for the
// same parent the lexicographically smaller hash wins the connect, matching
// the reconciliation tie-break.
func TestTryAppendCompetingOrphans(t *testing.T) {
	chain := chainSetup(t)
	gen := newBlockGen(t)

	parent := gen.makeBlock(*chaincfg.SimNetParams.GenesisHash, 1, "parent")
	childA := gen.makeBlock(parent.Hash, 2, "child a")
	childB := gen.makeBlock(parent.Hash, 2, "child b")

	mustAppend(t, chain, childA, StatusOrphaned)
	mustAppend(t, chain, childB, StatusOrphaned)
	mustAppend(t, chain, parent, StatusAccepted)

	want := &childA.Hash
	if !chainhashLess(&childA.Hash, &childB.Hash) {
		want = &childB.Hash
	}
	if got := chain.TipHash(); !got.IsEqual(want) {
		t.Fatalf("TipHash: got %v, want smaller-hash child %v", got,
			want)
	}
	if got := chain.TipHeight(); got != 2 {
		t.Fatalf("TipHeight: got %d, want 2", got)
	}
}

// TestTryAppendForkHorizon tests that orphans attaching far below the tip
// are dropped rather than retained once they are beyond the configured
// reorganization depth.
func TestTryAppendForkHorizon(t *testing.T) {
	db, err := leveldb.NewDB(filepath.Join(t.TempDir(), "horizon"), true)
	if err != nil {
		t.Fatalf("leveldb.NewDB: unexpected error %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chain, err := New(&Config{
		DB:           db,
		ChainParams:  &chaincfg.SimNetParams,
		Verifier:     identity.Ed25519Verifier{},
		MaxForkDepth: 3,
	})
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}

	gen := newBlockGen(t)
	blocks := gen.makeChain(chaincfg.SimNetParams.GenesisBlock, 8, "main")
	for _, block := range blocks {
		mustAppend(t, chain, block, StatusAccepted)
	}

	// A competing block at height 5 sits exactly at the horizon of tip 8
	// and must be dropped without retention.
	deep := gen.makeBlock(blocks[3].Hash, 5, "deep fork")
	mustAppend(t, chain, deep, StatusOrphaned)
	if chain.IsKnownOrphan(&deep.Hash) {
		t.Fatal("block beyond fork horizon was retained")
	}

	// One above the horizon is retained normally.
	shallow := gen.makeBlock(blocks[4].Hash, 6, "shallow fork")
	mustAppend(t, chain, shallow, StatusOrphaned)
	if !chain.IsKnownOrphan(&shallow.Hash) {
		t.Fatal("block within fork horizon was not retained")
	}
}

// TestTryAppendBatchAbort tests the store-level contract relied on by batch
// appends: a rejection mid-sequence leaves the tip at the last accepted
// block so a caller can safely abort the remainder.
func TestTryAppendBatchAbort(t *testing.T) {
	chain := chainSetup(t)
	gen := newBlockGen(t)

	blocks := gen.makeChain(chaincfg.SimNetParams.GenesisBlock, 5, "main")

	// Corrupt the third block's payload after signing.
	blocks[2].Payload = []byte("corrupted mid-batch")

	statuses := make([]Status, 0, len(blocks))
	for _, block := range blocks {
		status, err := chain.TryAppend(block)
		statuses = append(statuses, status)
		if status == StatusRejected {
			assertRuleError(t, err, ErrBadDigest)
			break
		}
		if err != nil {
			t.Fatalf("TryAppend(%v): unexpected error %v",
				block.Hash, err)
		}
	}

	want := []Status{StatusAccepted, StatusAccepted, StatusRejected}
	if len(statuses) != len(want) {
		t.Fatalf("processed %d blocks, want %d", len(statuses),
			len(want))
	}
	for i, status := range statuses {
		if status != want[i] {
			t.Fatalf("block #%d: got status %v, want %v", i,
				status, want[i])
		}
	}
	if got := chain.TipHeight(); got != 2 {
		t.Fatalf("TipHeight after abort: got %d, want 2", got)
	}
}
