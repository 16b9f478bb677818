// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peermgr provides the registry of known gossip peers and their
// liveness state.
//
// The registry never performs network calls itself.  Other components report
// contact outcomes through RecordContact and the registry classifies peers
// as active, stale, or unreachable from those observations alone, so it is
// the single writer of peer liveness state.
package peermgr

import (
	"encoding/json"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultMaxFailures is the number of consecutive failed contacts
	// after which a peer is classified unreachable.
	defaultMaxFailures = 3

	// defaultStaleTTL is how long a peer may go without a successful
	// contact before the reaper removes it.
	defaultStaleTTL = 5 * time.Minute

	// reapInterval is how often the handler goroutine runs the reaper.
	reapInterval = 1 * time.Minute

	// dumpPeersInterval is how often the known peer set is written to
	// disk while the registry is running.
	dumpPeersInterval = 2 * time.Minute

	// peersFileVersion is the version of the serialized peers file.
	peersFileVersion = 1
)

// Status is the liveness classification of a known peer.
type Status int

const (
	// StatusActive marks a peer whose most recent contacts succeeded.
	StatusActive Status = iota

	// StatusStale marks a peer that has not been contacted successfully
	// for over half the stale TTL.  Stale peers are excluded from
	// fan-out selection but remain candidates for removal or recovery.
	StatusStale

	// StatusUnreachable marks a peer whose last contacts all failed.
	StatusUnreachable
)

// String returns the Status as a human-readable name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusStale:
		return "stale"
	case StatusUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("unknown status (%d)", int(s))
}

// Source records how an address entered the registry.
type Source int

const (
	// SourceBootstrap marks addresses from the configured seed list.
	SourceBootstrap Source = iota

	// SourceInbound marks addresses learned from inbound requests.
	SourceInbound

	// SourceExchange marks addresses learned via peer exchange.
	SourceExchange
)

// String returns the Source as a human-readable name.
func (s Source) String() string {
	switch s {
	case SourceBootstrap:
		return "bootstrap"
	case SourceInbound:
		return "inbound"
	case SourceExchange:
		return "exchange"
	}
	return fmt.Sprintf("unknown source (%d)", int(s))
}

// KnownPeer is the registry's record of a gossip peer.  Callers receive
// copies; only the registry mutates the stored record.
type KnownPeer struct {
	// Address is the host:port the peer serves gossip on.  It is the
	// unique registry key.
	Address string

	// FirstSeen is when the address entered the registry.
	FirstSeen time.Time

	// LastSeen is the time of the most recent successful contact.
	LastSeen time.Time

	// DeclaredHeight is the tip height the peer reported on its most
	// recent summary.
	DeclaredHeight int64

	// Status is the current liveness classification.
	Status Status

	// Source records how the address was learned.
	Source Source

	// failures counts consecutive failed contacts since the last
	// success.
	failures int
}

// Config holds the registry's tunables.  Zero values select defaults.
type Config struct {
	// PeersFile is the path the known peer set is persisted to.  An
	// empty path disables persistence.
	PeersFile string

	// MaxFailures is the consecutive-failure count after which a peer
	// is classified unreachable.
	MaxFailures int

	// StaleTTL is how long a peer may go without a successful contact
	// before it is removed by the reaper.
	StaleTTL time.Duration
}

// PeerManager is the peer registry.  A single mutex guards the peer map;
// every operation is memory-only, so contention is never a concern.
//
// The lifecycle methods start a handler goroutine that periodically reaps
// stale peers and persists the registry, mirroring how contact updates are
// kept off the reap path.
type PeerManager struct {
	mtx   sync.Mutex
	peers map[string]*KnownPeer

	peersFile   string
	maxFailures int
	staleTTL    time.Duration

	started  int32
	shutdown int32
	wg       sync.WaitGroup
	quit     chan struct{}
}

// New returns a peer registry with the given configuration.
func New(cfg *Config) *PeerManager {
	pm := PeerManager{
		peers:       make(map[string]*KnownPeer),
		peersFile:   cfg.PeersFile,
		maxFailures: cfg.MaxFailures,
		staleTTL:    cfg.StaleTTL,
		quit:        make(chan struct{}),
	}
	if pm.maxFailures <= 0 {
		pm.maxFailures = defaultMaxFailures
	}
	if pm.staleTTL <= 0 {
		pm.staleTTL = defaultStaleTTL
	}
	return &pm
}

// Register inserts an address into the registry if it is not already known
// and reports whether a new record was created.  Registration is idempotent;
// re-registering an existing address never resets its liveness state.
//
// This function is safe for concurrent access.
func (pm *PeerManager) Register(addr string, src Source) bool {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	if _, exists := pm.peers[addr]; exists {
		return false
	}

	now := time.Now()
	pm.peers[addr] = &KnownPeer{
		Address:   addr,
		FirstSeen: now,
		LastSeen:  now,
		Status:    StatusActive,
		Source:    src,
	}
	log.Debugf("Registered peer %s (source %v)", addr, src)
	return true
}

// RecordContact records the outcome of a transport interaction with the
// given peer.  A success refreshes LastSeen and the declared height and
// clears the failure streak; a failure extends the streak and classifies
// the peer unreachable once it reaches the configured maximum.  Contacts
// for unknown addresses are ignored.
//
// This function is safe for concurrent access.
func (pm *PeerManager) RecordContact(addr string, observedHeight int64, success bool) {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	peer, exists := pm.peers[addr]
	if !exists {
		return
	}

	if success {
		peer.LastSeen = time.Now()
		peer.DeclaredHeight = observedHeight
		peer.failures = 0
		peer.Status = StatusActive
		return
	}

	peer.failures++
	if peer.failures >= pm.maxFailures && peer.Status != StatusUnreachable {
		log.Debugf("Peer %s unreachable after %d consecutive failures",
			addr, peer.failures)
		peer.Status = StatusUnreachable
	}
}

// ActivePeers returns copies of the active peers ordered most recently seen
// first, with ties broken by address so the ordering is deterministic.  A
// limit of zero or less returns all active peers.
//
// This function is safe for concurrent access.
func (pm *PeerManager) ActivePeers(limit int) []KnownPeer {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	active := make([]KnownPeer, 0, len(pm.peers))
	for _, peer := range pm.peers {
		if peer.Status != StatusActive {
			continue
		}
		active = append(active, *peer)
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].LastSeen.Equal(active[j].LastSeen) {
			return active[i].LastSeen.After(active[j].LastSeen)
		}
		return active[i].Address < active[j].Address
	})
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active
}

// Peer returns a copy of the record for the given address and whether the
// address is known.
//
// This function is safe for concurrent access.
func (pm *PeerManager) Peer(addr string) (KnownPeer, bool) {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	peer, exists := pm.peers[addr]
	if !exists {
		return KnownPeer{}, false
	}
	return *peer, true
}

// Count returns the number of known peers of any status.
//
// This function is safe for concurrent access.
func (pm *PeerManager) Count() int {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()
	return len(pm.peers)
}

// ReapStale removes peers whose last successful contact is older than ttl
// and downgrades active peers older than half of it to stale.  It returns
// the number of peers removed.
//
// This function is safe for concurrent access.
func (pm *PeerManager) ReapStale(now time.Time, ttl time.Duration) int {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	removed := 0
	for addr, peer := range pm.peers {
		age := now.Sub(peer.LastSeen)
		if age > ttl {
			delete(pm.peers, addr)
			removed++
			continue
		}
		if age > ttl/2 && peer.Status == StatusActive {
			peer.Status = StatusStale
		}
	}
	if removed > 0 {
		log.Debugf("Reaped %d stale peers, %d remain", removed,
			len(pm.peers))
	}
	return removed
}

// AddressCache returns up to max addresses suitable for a peer-exchange
// reply.  Unreachable peers are excluded and the result is shuffled so
// repeated exchanges spread knowledge of the whole set.
//
// This function is safe for concurrent access.
func (pm *PeerManager) AddressCache(max int) []string {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()

	addrs := make([]string, 0, len(pm.peers))
	for addr, peer := range pm.peers {
		if peer.Status == StatusUnreachable {
			continue
		}
		addrs = append(addrs, addr)
	}
	mrand.Shuffle(len(addrs), func(i, j int) {
		addrs[i], addrs[j] = addrs[j], addrs[i]
	})
	if max > 0 && len(addrs) > max {
		addrs = addrs[:max]
	}
	return addrs
}

// Start begins the registry's background handling by loading any persisted
// peer set and launching the handler goroutine.  Calling Start on an
// already started registry is a no-op.
func (pm *PeerManager) Start() {
	if atomic.AddInt32(&pm.started, 1) != 1 {
		return
	}

	log.Trace("Starting peer manager")

	pm.loadPeers()

	pm.wg.Add(1)
	go pm.peersHandler()
}

// Stop gracefully shuts down the registry by stopping the handler goroutine
// and flushing the peer set to disk.
func (pm *PeerManager) Stop() error {
	if atomic.AddInt32(&pm.shutdown, 1) != 1 {
		log.Warnf("Peer manager is already in the process of shutting down")
		return nil
	}

	log.Infof("Peer manager shutting down")
	close(pm.quit)
	pm.wg.Wait()

	pm.savePeers()
	return nil
}

// peersHandler periodically reaps stale peers and persists the registry.
// It must be run as a goroutine.
func (pm *PeerManager) peersHandler() {
	reapTicker := time.NewTicker(reapInterval)
	defer reapTicker.Stop()
	dumpTicker := time.NewTicker(dumpPeersInterval)
	defer dumpTicker.Stop()

out:
	for {
		select {
		case <-reapTicker.C:
			pm.ReapStale(time.Now(), pm.staleTTL)

		case <-dumpTicker.C:
			pm.savePeers()

		case <-pm.quit:
			break out
		}
	}

	pm.wg.Done()
	log.Trace("Peer handler done")
}

// serializedKnownPeer is the on-disk form of a KnownPeer.
type serializedKnownPeer struct {
	Address        string    `json:"address"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	DeclaredHeight int64     `json:"declared_height"`
	Status         int       `json:"status"`
	Source         int       `json:"source"`
}

// serializedPeerSet is the on-disk form of the registry.
type serializedPeerSet struct {
	Version int                   `json:"version"`
	Peers   []serializedKnownPeer `json:"peers"`
}

// savePeers writes the known peer set to the configured peers file.
func (pm *PeerManager) savePeers() {
	if pm.peersFile == "" {
		return
	}

	pm.mtx.Lock()
	set := serializedPeerSet{Version: peersFileVersion}
	for _, peer := range pm.peers {
		set.Peers = append(set.Peers, serializedKnownPeer{
			Address:        peer.Address,
			FirstSeen:      peer.FirstSeen,
			LastSeen:       peer.LastSeen,
			DeclaredHeight: peer.DeclaredHeight,
			Status:         int(peer.Status),
			Source:         int(peer.Source),
		})
	}
	pm.mtx.Unlock()

	// Deterministic file contents regardless of map iteration order.
	sort.Slice(set.Peers, func(i, j int) bool {
		return set.Peers[i].Address < set.Peers[j].Address
	})

	w, err := os.Create(pm.peersFile)
	if err != nil {
		log.Errorf("Error creating file %s: %v", pm.peersFile, err)
		return
	}
	enc := json.NewEncoder(w)
	defer w.Close()
	if err := enc.Encode(&set); err != nil {
		log.Errorf("Failed to encode file %s: %v", pm.peersFile, err)
	}
}

// loadPeers loads the known peer set from the configured peers file.  A
// missing file starts the registry empty; an unreadable one is discarded so
// a corrupted file cannot wedge startup.
func (pm *PeerManager) loadPeers() {
	if pm.peersFile == "" {
		return
	}

	err := pm.deserializePeers()
	if err == nil {
		return
	}
	if !os.IsNotExist(err) {
		log.Errorf("Failed to parse file %s: %v", pm.peersFile, err)
		if err := os.Remove(pm.peersFile); err != nil {
			log.Warnf("Failed to remove corrupt peers file %s: %v",
				pm.peersFile, err)
		}
	}

	pm.mtx.Lock()
	pm.peers = make(map[string]*KnownPeer)
	pm.mtx.Unlock()
	log.Infof("No peers file found, starting with an empty registry")
}

// deserializePeers reads and installs the persisted peer set.
func (pm *PeerManager) deserializePeers() error {
	r, err := os.Open(pm.peersFile)
	if err != nil {
		return err
	}
	defer r.Close()

	var set serializedPeerSet
	if err := json.NewDecoder(r).Decode(&set); err != nil {
		return fmt.Errorf("error reading %s: %w", pm.peersFile, err)
	}
	if set.Version != peersFileVersion {
		return fmt.Errorf("unknown peers file version %d", set.Version)
	}

	peers := make(map[string]*KnownPeer, len(set.Peers))
	for _, sp := range set.Peers {
		peers[sp.Address] = &KnownPeer{
			Address:        sp.Address,
			FirstSeen:      sp.FirstSeen,
			LastSeen:       sp.LastSeen,
			DeclaredHeight: sp.DeclaredHeight,
			Status:         Status(sp.Status),
			Source:         Source(sp.Source),
		}
	}

	pm.mtx.Lock()
	pm.peers = peers
	pm.mtx.Unlock()

	log.Infof("Loaded %d peers from %s", len(peers), pm.peersFile)
	return nil
}
