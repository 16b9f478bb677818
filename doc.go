// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
rustsyncd is a block synchronization daemon for the rustchain network.

rustsyncd keeps a verified local copy of the chain in sync with its peers.
It maintains a registry of known peers, pulls block ranges from the peers
that are ahead, verifies payload digests and producer signatures, relays
accepted announcements, reorganizes to winning forks, and serves the same
gossip exchanges to other nodes over HTTP.

Usage:

	rustsyncd [OPTIONS]

Application Options:

	-V, --version          Display version information and exit
	-C, --configfile=      Path to configuration file
	-b, --datadir=         Directory to store data
	    --logdir=          Directory to log output
	    --listen=          Add an interface/port to listen for gossip
	                       connections (default all interfaces port: 7445,
	                       simnet: 17445)
	    --externaladdr=    Address other nodes should use to reach this node
	    --nolisten         Disable the gossip server
	    --connect=         Bootstrap peer to seed the registry with at startup
	    --dbtype=          Database backend to use for the block store
	    --proxy=           Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)
	    --proxyuser=       Username for proxy server
	    --proxypass=       Password for proxy server
	    --simnet           Use the simulation test network
	    --peertimeout=     Deadline applied to every remote request
	    --tickinterval=    How often a synchronization round is started
	    --stalettl=        How long a known peer may go without contact
	                       before it is forgotten
	    --maxfetchspan=    Maximum number of blocks requested in a single
	                       range fetch
	    --fanout=          Number of active peers contacted each
	                       synchronization round
	    --maxforkdepth=    Deepest fork the node will reorganize across
	    --reconcilemargin= Number of blocks a competing fork must lead by
	                       before a reorganization is attempted
	    --profile=         Enable HTTP profiling on given port
	-d, --debuglevel=      Logging level for all subsystems {trace, debug,
	                       info, warn, error, critical}

Help Options:

	-h, --help             Show this help message
*/
package main
