// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/rustchain-network/rustsyncd/chaincfg"
)

// activeNetParams is a pointer to the parameters specific to the currently
// active rustchain network.
var activeNetParams = &mainNetParams

// params is used to group parameters for the various networks such as the
// main network and simulation network.
type params struct {
	*chaincfg.Params
	gossipPort string
}

// mainNetParams contains parameters specific to the main network.
var mainNetParams = params{
	Params:     &chaincfg.MainNetParams,
	gossipPort: chaincfg.MainNetParams.DefaultPort,
}

// simNetParams contains parameters specific to the simulation test network.
var simNetParams = params{
	Params:     &chaincfg.SimNetParams,
	gossipPort: chaincfg.SimNetParams.DefaultPort,
}

// netName returns the name used when referring to a rustchain network.  It is
// used to qualify the data and log directories so multiple networks may be
// run from the same home directory.
func netName(netParams *params) string {
	return netParams.Name
}
