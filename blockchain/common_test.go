// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/chaincfg"
	"github.com/rustchain-network/rustsyncd/database/engine/leveldb"
	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/wire"
)

// blockGen deterministically produces signed test blocks from a generated
// producer key.
type blockGen struct {
	pub  []byte
	priv []byte
}

func newBlockGen(t *testing.T) *blockGen {
	t.Helper()
	pub, priv, err := identity.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: unexpected error %v", err)
	}
	return &blockGen{pub: pub, priv: priv}
}

// makeBlock produces a valid signed block at the given height linking to the
// given parent hash.
func (g *blockGen) makeBlock(prevHash chainhash.Hash, height int64, payload string) *wire.Block {
	block := &wire.Block{
		PrevHash: prevHash,
		Height:   height,
		Payload:  []byte(payload),
		Producer: wire.ProducerInfo{
			PubKey:        g.pub,
			HardwareClass: "workstation/2",
			Weight:        1.0,
		},
		Signature: identity.Sign(g.priv, []byte(payload)),
	}
	block.Hash = block.BlockHash()
	return block
}

// makeChain produces count valid linked blocks extending the given parent.
func (g *blockGen) makeChain(parent *wire.Block, count int, tag string) []*wire.Block {
	blocks := make([]*wire.Block, 0, count)
	prevHash := parent.Hash
	height := parent.Height
	for i := 0; i < count; i++ {
		height++
		block := g.makeBlock(prevHash, height,
			fmt.Sprintf("%s block %d", tag, height))
		blocks = append(blocks, block)
		prevHash = block.Hash
	}
	return blocks
}

// chainSetup creates a chain instance backed by a throwaway leveldb store
// using the simnet genesis.
func chainSetup(t *testing.T) *BlockChain {
	t.Helper()
	return chainSetupWithDB(t, filepath.Join(t.TempDir(), "chaintest"), true)
}

// chainSetupWithDB creates a chain instance at the given store path,
// optionally creating the store, so tests can exercise persistence across
// reopen.
func chainSetupWithDB(t *testing.T, dbPath string, create bool) *BlockChain {
	t.Helper()

	db, err := leveldb.NewDB(dbPath, create)
	if err != nil {
		t.Fatalf("leveldb.NewDB: unexpected error %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chain, err := New(&Config{
		DB:          db,
		ChainParams: &chaincfg.SimNetParams,
		Verifier:    identity.Ed25519Verifier{},
	})
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	return chain
}

// mustAppend appends a block and fails the test unless it reports the
// wanted status.
func mustAppend(t *testing.T, chain *BlockChain, block *wire.Block, want Status) {
	t.Helper()
	got, err := chain.TryAppend(block)
	if want != StatusRejected && err != nil {
		t.Fatalf("TryAppend(%v): unexpected error %v", block.Hash, err)
	}
	if got != want {
		t.Fatalf("TryAppend(%v): got status %v, want %v", block.Hash,
			got, want)
	}
}
