// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"

	"github.com/btcsuite/go-socks/socks"

	"github.com/rustchain-network/rustsyncd/blockchain"
	"github.com/rustchain-network/rustsyncd/database/engine"
	"github.com/rustchain-network/rustsyncd/database/engine/leveldb"
	"github.com/rustchain-network/rustsyncd/database/engine/pebbledb"
	"github.com/rustchain-network/rustsyncd/gossip"
	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/internal/version"
	"github.com/rustchain-network/rustsyncd/limits"
	"github.com/rustchain-network/rustsyncd/netsync"
	"github.com/rustchain-network/rustsyncd/peermgr"
)

const (
	// blockDbNamePrefix is the prefix for the block database name.  The
	// database type is appended to this value to form the full block
	// database name.
	blockDbNamePrefix = "blocks"

	// peersFilename is the name of the file the known peer registry is
	// persisted to within the data directory.
	peersFilename = "peers.json"
)

// cfg is the loaded daemon configuration.  It is set once in rustsyncdMain
// and never modified afterward.
var cfg *config

// blockDbPath returns the path to the block database given a database type.
func blockDbPath(dbType string) string {
	dbName := blockDbNamePrefix + "_" + dbType
	return filepath.Join(cfg.DataDir, dbName)
}

// loadBlockDB opens the block database of the configured type, creating it
// along with the data directory when it does not yet exist.
func loadBlockDB() (engine.Engine, error) {
	dbPath := blockDbPath(cfg.DbType)
	rsydLog.Infof("Loading block database from '%s'", dbPath)

	err := os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return nil, err
	}

	var db engine.Engine
	switch cfg.DbType {
	case "pebbledb":
		db, err = pebbledb.NewDB(dbPath, false, 0, 0)
	default:
		db, err = leveldb.NewDB(dbPath, false)
	}
	if err != nil {
		return nil, err
	}

	rsydLog.Info("Block database loaded")
	return db, nil
}

// setupListeners opens a TCP listener for every configured listen address.
// Any already opened listeners are closed when one of them fails.
func setupListeners(addrs []string) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, fmt.Errorf("can't listen on %s: %w", addr,
				err)
		}
		listeners = append(listeners, listener)
	}
	return listeners, nil
}

// rustsyncdMain is the real main function for rustsyncd.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit is
// called.
func rustsyncdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the chain store.
	interrupt := interruptListener()
	defer rsydLog.Info("Shutdown complete")

	// Show version at startup.
	rsydLog.Infof("Version %s", version.String())

	// Enable http profiling server if requested.
	if cfg.Profile != "" {
		go func() {
			listenAddr := net.JoinHostPort("", cfg.Profile)
			rsydLog.Infof("Profile server listening on %s",
				listenAddr)
			profileRedirect := http.RedirectHandler("/debug/pprof",
				http.StatusSeeOther)
			http.Handle("/", profileRedirect)
			rsydLog.Errorf("%v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	// Load the block database.
	db, err := loadBlockDB()
	if err != nil {
		rsydLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		rsydLog.Infof("Gracefully shutting down the database...")
		db.Close()
	}()

	// Return now if an interrupt signal was triggered during database
	// load.
	if interruptRequested(interrupt) {
		return nil
	}

	// Create the chain store, initializing it with the network genesis
	// block when the database is fresh.
	chain, err := blockchain.New(&blockchain.Config{
		DB:           db,
		ChainParams:  activeNetParams.Params,
		Verifier:     identity.Ed25519Verifier{},
		MaxForkDepth: cfg.MaxForkDepth,
	})
	if err != nil {
		rsydLog.Errorf("Failed to initialize chain store: %v", err)
		return err
	}
	best := chain.BestSnapshot()
	rsydLog.Infof("Chain state: height %d, hash %v", best.Height, best.Hash)

	// Create the peer registry backed by the peers file in the data
	// directory.
	peerMgr := peermgr.New(&peermgr.Config{
		PeersFile: filepath.Join(cfg.DataDir, peersFilename),
		StaleTTL:  cfg.StaleTTL,
	})

	// Create the gossip client, routing through the configured SOCKS5
	// proxy when one is set.
	var proxy *socks.Proxy
	if cfg.Proxy != "" {
		proxy = &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		rsydLog.Infof("Proxying outbound gossip through %s", cfg.Proxy)
	}
	gossipClient := gossip.NewClient(&gossip.ClientConfig{
		Timeout: cfg.PeerTimeout,
		Proxy:   proxy,
	})
	defer gossipClient.Close()

	// Peers can only be told how to reach this node when the gossip
	// server is running.
	selfAddr := cfg.ExternalAddr
	if cfg.DisableListen {
		selfAddr = ""
	}

	syncMgr, err := netsync.New(&netsync.Config{
		Chain:           chain,
		Peers:           peerMgr,
		Transport:       gossipClient,
		SelfAddr:        selfAddr,
		BootstrapPeers:  cfg.ConnectPeers,
		TickInterval:    cfg.TickInterval,
		MaxFetchSpan:    cfg.MaxFetchSpan,
		FanOut:          cfg.FanOut,
		ReconcileMargin: cfg.ReconcileMargin,
		RequestShutdown: func() {
			select {
			case shutdownRequestChannel <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		rsydLog.Errorf("Failed to create sync manager: %v", err)
		return err
	}

	// Start the gossip server unless listening is disabled.
	var gossipServer *gossip.Server
	if !cfg.DisableListen {
		listeners, err := setupListeners(cfg.Listeners)
		if err != nil {
			rsydLog.Errorf("%v", err)
			return err
		}
		gossipServer = gossip.NewServer(syncMgr)
		gossipServer.Start(listeners)
	}

	peerMgr.Start()
	syncMgr.Start()
	if n := uint64(len(cfg.ConnectPeers)); n > 0 {
		rsydLog.Infof("Seeded %d bootstrap %s", n,
			pickNoun(n, "peer", "peers"))
	}

	defer func() {
		// The gossip server goes down first so no new inbound work can
		// reach the sync manager or the chain store mid-shutdown.
		if gossipServer != nil {
			gossipServer.Stop()
		}
		rsydLog.Infof("Gracefully shutting down the sync manager...")
		syncMgr.Stop()
		peerMgr.Stop()
	}()

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interrupt
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Up some limits.
	if err := limits.SetLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set limits: %v\n", err)
		os.Exit(1)
	}

	// Work around defer not working after os.Exit()
	if err := rustsyncdMain(); err != nil {
		os.Exit(1)
	}
}
