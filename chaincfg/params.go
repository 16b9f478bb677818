// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters for the supported
// rustchain networks.
package chaincfg

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/wire"
)

// Params defines a rustchain network by its parameters.  These parameters
// may be used by applications to differentiate networks as well as addresses
// and keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// DefaultPort defines the default gossip port for the network.
	DefaultPort string

	// GenesisBlock is the genesis block for the network.
	GenesisBlock *wire.Block

	// GenesisHash is the genesis block hash for the network.
	GenesisHash *chainhash.Hash
}

// MainNetParams defines the network parameters for the main rustchain
// network.
var MainNetParams = Params{
	Name:         "mainnet",
	DefaultPort:  "7445",
	GenesisBlock: &genesisBlock,
	GenesisHash:  &genesisHash,
}

// SimNetParams defines the network parameters for the simulation test
// network.  It exists for private integration testing: its genesis block
// differs from mainnet so the two chains can never be cross-fed.
var SimNetParams = Params{
	Name:         "simnet",
	DefaultPort:  "17445",
	GenesisBlock: &simNetGenesisBlock,
	GenesisHash:  &simNetGenesisHash,
}
