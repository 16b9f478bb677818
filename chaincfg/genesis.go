// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/wire"
)

// genesisBlock defines the genesis block of the main network canonical
// chain.  It is the only block with a zero previous hash and carries no
// producer signature; the chain store admits it by hash rather than through
// the normal acceptance path.
var genesisBlock = wire.Block{
	PrevHash: chainhash.Hash{},
	Height:   0,
	Payload:  []byte("rustchain mainnet genesis 2024-03-01"),
	Producer: wire.ProducerInfo{
		HardwareClass: "genesis",
		Weight:        1.0,
	},
}

// genesisHash is the hash of the first block in the main network chain.
var genesisHash = genesisBlock.BlockHash()

// simNetGenesisBlock defines the genesis block of the simulation network
// canonical chain.
var simNetGenesisBlock = wire.Block{
	PrevHash: chainhash.Hash{},
	Height:   0,
	Payload:  []byte("rustchain simnet genesis"),
	Producer: wire.ProducerInfo{
		HardwareClass: "genesis",
		Weight:        1.0,
	},
}

// simNetGenesisHash is the hash of the first block in the simulation network
// chain.
var simNetGenesisHash = simNetGenesisBlock.BlockHash()

func init() {
	// The hash fields of the genesis blocks cannot reference themselves
	// in their digests, so they are populated here once the digests are
	// known.
	genesisBlock.Hash = genesisHash
	simNetGenesisBlock.Hash = simNetGenesisHash
}
