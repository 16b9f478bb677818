// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"

	"github.com/rustchain-network/rustsyncd/blockchain"
	"github.com/rustchain-network/rustsyncd/gossip"
	"github.com/rustchain-network/rustsyncd/peermgr"
	"github.com/rustchain-network/rustsyncd/wire"
)

const (
	// defaultTickInterval is how often the pull cycle polls active peers.
	defaultTickInterval = 30 * time.Second

	// defaultMaxFetchSpan caps the height span requested from a peer in
	// one fetch.
	defaultMaxFetchSpan = 500

	// defaultFanOut is the number of peers a newly accepted block is
	// announced to.
	defaultFanOut = 8

	// defaultDiscoveryInterval is how often peer lists are exchanged
	// with a few active peers.
	defaultDiscoveryInterval = 2 * time.Minute

	// discoveryFanOut is the number of peers asked per discovery round.
	discoveryFanOut = 3

	// announcedCacheSize bounds the cache of recently announced
	// hash/peer pairs used to deduplicate the push path.
	announcedCacheSize = 5000

	// pullQueueSize bounds pending targeted pulls scheduled by orphaned
	// inbound announces.
	pullQueueSize = 16
)

// sessionState tracks the progression of one peer interaction during a
// sync cycle.
type sessionState int

const (
	// stateIdle is a finished or not yet started interaction.
	stateIdle sessionState = iota

	// stateSummaryRequested means the summary round trip is in flight.
	stateSummaryRequested

	// stateComparing means the peer's summary is being compared against
	// the local tip.
	stateComparing

	// stateFetching means a block range request is in flight.
	stateFetching

	// stateReconciling means fetched orphan segments are being evaluated
	// for a reorganization.
	stateReconciling

	// stateFailed means the interaction ended on a transport failure.
	stateFailed
)

// String returns the sessionState as a human-readable name.
func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSummaryRequested:
		return "summary-requested"
	case stateComparing:
		return "comparing"
	case stateFetching:
		return "fetching"
	case stateReconciling:
		return "reconciling"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown state (%d)", int(s))
}

// syncSession is the ephemeral record of one peer interaction.  It is owned
// exclusively by the worker processing the peer and surfaces read-only in
// Status snapshots.
type syncSession struct {
	peer       string
	startedAt  time.Time
	state      sessionState
	fromHeight int64
	toHeight   int64
}

// Transport is the subset of the gossip client the sync manager drives.
// gossip.Client satisfies it; tests substitute scripted peers.
type Transport interface {
	FetchSummary(ctx context.Context, peer string) (*wire.MsgSummary, error)
	FetchBlocks(ctx context.Context, peer string, fromHeight,
		toHeight int64) ([]*wire.Block, bool, error)
	Announce(ctx context.Context, peer string, block *wire.Block,
		from string) (bool, error)
	ExchangePeers(ctx context.Context, peer, selfAddr string) ([]string, error)
}

// Config is a configuration struct used to initialize a new SyncManager.
type Config struct {
	// Chain is the chain store candidates are fed through.
	Chain *blockchain.BlockChain

	// Peers is the registry liveness observations are written to.
	Peers *peermgr.PeerManager

	// Transport performs the gossip exchanges.
	Transport Transport

	// SelfAddr is the externally reachable listen address shared with
	// peers.  Empty when the node does not accept inbound connections.
	SelfAddr string

	// BootstrapPeers seed the registry on Start.
	BootstrapPeers []string

	// TickInterval is how often the pull cycle runs.  Zero selects the
	// default.
	TickInterval time.Duration

	// TickBudget bounds one pull cycle; peers left unprocessed when it
	// expires wait for the next tick.  Zero selects the tick interval.
	TickBudget time.Duration

	// MaxFetchSpan caps the requested height span per fetch.  Zero
	// selects the default.
	MaxFetchSpan int64

	// FanOut is how many peers each accepted block is announced to.
	// Zero selects the default.
	FanOut int

	// ReconcileMargin is how far beyond the canonical tip an orphan
	// segment must reach before reconciliation runs.
	ReconcileMargin int64

	// DiscoveryInterval is how often peer lists are exchanged.  Zero
	// selects the default.
	DiscoveryInterval time.Duration

	// RequestShutdown, when set, is invoked on unrecoverable chain store
	// failures.  Syncing differently cannot repair a corrupt store, so
	// the process owner gets to decide what to do.
	RequestShutdown func()
}

// SessionInfo is a read-only view of one in-flight peer interaction.
type SessionInfo struct {
	Peer       string
	State      string
	StartedAt  time.Time
	FromHeight int64
	ToHeight   int64
}

// ManagerStatus is a point-in-time snapshot of the sync engine for logs and
// operational surfaces.
type ManagerStatus struct {
	TipHeight   int64
	TipHash     chainhash.Hash
	KnownPeers  int
	ActivePeers int
	OrphanCount int
	Sessions    []SessionInfo
}

// SyncManager drives the block synchronization protocol: a periodic pull
// cycle over the active peers, an inbound handler for the gossip server, a
// bounded announce fan-out, and periodic peer discovery.  Liveness
// bookkeeping goes to the peer registry; block semantics stay in the chain
// store.
type SyncManager struct {
	started  int32
	shutdown int32

	chain     *blockchain.BlockChain
	peers     *peermgr.PeerManager
	transport Transport

	selfAddr          string
	bootstrapPeers    []string
	tickInterval      time.Duration
	tickBudget        time.Duration
	maxFetchSpan      int64
	fanOut            int
	reconcileMargin   int64
	discoveryInterval time.Duration
	requestShutdown   func()

	// announced deduplicates the push path by hash|peer pair.
	announced lru.Cache

	// inFlight guards against overlapping interactions with one peer
	// across ticks and targeted pulls.
	inFlightMtx sync.Mutex
	inFlight    map[string]struct{}

	sessionMtx sync.Mutex
	sessions   map[string]*syncSession

	pullCh chan string

	progressLogger *blockProgressLogger

	wg   sync.WaitGroup
	quit chan struct{}
}

// New constructs a new SyncManager.
func New(config *Config) (*SyncManager, error) {
	if config.Chain == nil {
		return nil, errors.New("netsync: Chain is required")
	}
	if config.Peers == nil {
		return nil, errors.New("netsync: Peers is required")
	}
	if config.Transport == nil {
		return nil, errors.New("netsync: Transport is required")
	}

	sm := SyncManager{
		chain:             config.Chain,
		peers:             config.Peers,
		transport:         config.Transport,
		selfAddr:          config.SelfAddr,
		bootstrapPeers:    config.BootstrapPeers,
		tickInterval:      config.TickInterval,
		tickBudget:        config.TickBudget,
		maxFetchSpan:      config.MaxFetchSpan,
		fanOut:            config.FanOut,
		reconcileMargin:   config.ReconcileMargin,
		discoveryInterval: config.DiscoveryInterval,
		requestShutdown:   config.RequestShutdown,
		announced:         lru.NewCache(announcedCacheSize),
		inFlight:          make(map[string]struct{}),
		sessions:          make(map[string]*syncSession),
		pullCh:            make(chan string, pullQueueSize),
		progressLogger:    newBlockProgressLogger("Processed", log),
		quit:              make(chan struct{}),
	}
	if sm.tickInterval <= 0 {
		sm.tickInterval = defaultTickInterval
	}
	if sm.tickBudget <= 0 {
		sm.tickBudget = sm.tickInterval
	}
	if sm.maxFetchSpan <= 0 {
		sm.maxFetchSpan = defaultMaxFetchSpan
	}
	if sm.fanOut <= 0 {
		sm.fanOut = defaultFanOut
	}
	if sm.discoveryInterval <= 0 {
		sm.discoveryInterval = defaultDiscoveryInterval
	}
	return &sm, nil
}

// Start begins the sync cycle by seeding the registry with the bootstrap
// addresses and launching the handler goroutine.  Calling Start on an
// already started manager is a no-op.
func (sm *SyncManager) Start() {
	if atomic.AddInt32(&sm.started, 1) != 1 {
		return
	}

	log.Trace("Starting sync manager")

	// Reset the progress window so the first summary line covers sync
	// time, not time spent idle before Start.
	sm.progressLogger.SetLastLogTime(time.Now())

	for _, addr := range sm.bootstrapPeers {
		if sm.peers.Register(addr, peermgr.SourceBootstrap) {
			log.Debugf("Seeded bootstrap peer %s", addr)
		}
	}

	sm.wg.Add(1)
	go sm.syncHandler()
}

// Stop gracefully shuts down the sync manager by stopping the handler
// goroutine and waiting for in-flight peer interactions to finish.
func (sm *SyncManager) Stop() error {
	if atomic.AddInt32(&sm.shutdown, 1) != 1 {
		log.Warnf("Sync manager is already in the process of shutting down")
		return nil
	}

	log.Infof("Sync manager shutting down")
	close(sm.quit)
	sm.wg.Wait()
	log.Infof("Sync manager shutdown complete")
	return nil
}

// syncHandler runs the tick, discovery, and targeted pull scheduling.  It
// must be run as a goroutine.
func (sm *SyncManager) syncHandler() {
	defer sm.wg.Done()

	tickTicker := time.NewTicker(sm.tickInterval)
	defer tickTicker.Stop()
	discoveryTicker := time.NewTicker(sm.discoveryInterval)
	defer discoveryTicker.Stop()

	// An immediate first cycle so a freshly started node does not idle
	// for a full interval.
	sm.tick()

out:
	for {
		select {
		case <-tickTicker.C:
			sm.tick()

		case <-discoveryTicker.C:
			sm.discoverPeers()

		case peer := <-sm.pullCh:
			sm.pullFromPeer(peer)

		case <-sm.quit:
			break out
		}
	}

	log.Trace("Sync handler done")
}

// tick runs one pull cycle: every active peer not already being processed
// gets its own worker goroutine, bounded together by the tick budget.
// Workers are independent; a stalled peer consumes its own worker and
// nothing else.
func (sm *SyncManager) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), sm.tickBudget)
	defer cancel()

	peers := sm.peers.ActivePeers(0)
	if len(peers) == 0 {
		log.Trace("Sync tick with no active peers")
		return
	}

	var wg sync.WaitGroup
	launched := 0
	for _, peer := range peers {
		if ctx.Err() != nil {
			log.Debugf("Tick budget expired, abandoning %d of %d "+
				"peers", len(peers)-launched, len(peers))
			break
		}
		if !sm.markInFlight(peer.Address) {
			log.Debugf("Peer %s still in flight, skipping this "+
				"tick", peer.Address)
			continue
		}
		launched++
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			defer sm.clearInFlight(addr)
			sm.syncPeer(ctx, addr)
		}(peer.Address)
	}
	wg.Wait()
}

// pullFromPeer runs a single targeted interaction with the given peer,
// scheduled outside the tick cycle when an inbound announce orphaned.
func (sm *SyncManager) pullFromPeer(addr string) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	if !sm.markInFlight(addr) {
		return
	}

	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()
		defer sm.clearInFlight(addr)

		ctx, cancel := context.WithTimeout(context.Background(),
			sm.tickBudget)
		defer cancel()
		sm.syncPeer(ctx, addr)
	}()
}

// markInFlight records the peer as being processed and reports whether it
// was free.  Peers already in flight are skipped rather than queued so peer
// interactions never overlap or pile up.
func (sm *SyncManager) markInFlight(addr string) bool {
	sm.inFlightMtx.Lock()
	defer sm.inFlightMtx.Unlock()

	if _, busy := sm.inFlight[addr]; busy {
		return false
	}
	sm.inFlight[addr] = struct{}{}
	return true
}

// clearInFlight releases the peer for the next cycle.
func (sm *SyncManager) clearInFlight(addr string) {
	sm.inFlightMtx.Lock()
	delete(sm.inFlight, addr)
	sm.inFlightMtx.Unlock()
}

// setSession publishes the session for Status snapshots.
func (sm *SyncManager) setSession(session *syncSession) {
	sm.sessionMtx.Lock()
	sm.sessions[session.peer] = session
	sm.sessionMtx.Unlock()
}

// clearSession removes the peer's session from Status snapshots.
func (sm *SyncManager) clearSession(addr string) {
	sm.sessionMtx.Lock()
	delete(sm.sessions, addr)
	sm.sessionMtx.Unlock()
}

// syncPeer runs the full interaction state machine against one peer:
// summary, comparison, fetch, append, reconciliation.  Transport failures
// only record liveness; block rule violations abort the remainder of the
// peer's batch.
func (sm *SyncManager) syncPeer(ctx context.Context, addr string) {
	session := &syncSession{
		peer:      addr,
		startedAt: time.Now(),
		state:     stateSummaryRequested,
	}
	sm.setSession(session)
	defer sm.clearSession(addr)

	summary, err := sm.transport.FetchSummary(ctx, addr)
	if err != nil {
		session.state = stateFailed
		if gossip.IsUnsupportedVersion(err) {
			// No alternate version to fall back to, so the peer is
			// only useful again after one of us upgrades.
			log.Warnf("Peer %s speaks an unsupported protocol "+
				"version", addr)
		} else {
			log.Debugf("Failed to fetch summary from %s: %v", addr,
				err)
		}
		sm.peers.RecordContact(addr, 0, false)
		return
	}
	sm.peers.RecordContact(addr, summary.TipHeight, true)

	session.state = stateComparing
	local := sm.chain.BestSnapshot()
	if summary.TipHeight <= local.Height {
		// Nothing to pull.  The peer learns our blocks through the
		// push path or its own cycle.
		session.state = stateIdle
		return
	}

	fromHeight := local.Height + 1
	toHeight := summary.TipHeight
	if toHeight > local.Height+sm.maxFetchSpan {
		toHeight = local.Height + sm.maxFetchSpan
	}
	session.state = stateFetching
	session.fromHeight, session.toHeight = fromHeight, toHeight

	blocks, truncated, err := sm.transport.FetchBlocks(ctx, addr,
		fromHeight, toHeight)
	if err != nil {
		var netErr *gossip.NetworkError
		if errors.As(err, &netErr) {
			session.state = stateFailed
			sm.peers.RecordContact(addr, 0, false)
		}
		log.Debugf("Failed to fetch blocks [%d, %d] from %s: %v",
			fromHeight, toHeight, addr, err)
		return
	}
	if truncated {
		log.Debugf("Peer %s truncated range [%d, %d]", addr,
			fromHeight, toHeight)
	}

	orphaned, ok := sm.appendBatch(addr, blocks)
	if !ok {
		session.state = stateFailed
		return
	}

	// Orphans mean the peer is ahead on a fork rather than on our chain.
	// Pull the peer's recent history within the reorganization horizon so
	// the fork segment can attach and compete.
	if orphaned > 0 {
		sm.backfillFork(ctx, addr)
	}

	session.state = stateReconciling
	sm.maybeReconcile()
	session.state = stateIdle
}

// backfillFork fetches the peer's blocks over our recent canonical heights
// so a fork segment held only as orphans gains its missing ancestry.  The
// span is bounded by the fork depth limit, and failures are ignored; the
// next cycle retries naturally.
func (sm *SyncManager) backfillFork(ctx context.Context, addr string) {
	local := sm.chain.BestSnapshot()
	fromHeight := local.Height - int64(sm.chain.MaxForkDepth()) + 1
	if fromHeight < 1 {
		fromHeight = 1
	}
	if fromHeight > local.Height {
		return
	}

	blocks, _, err := sm.transport.FetchBlocks(ctx, addr, fromHeight,
		local.Height)
	if err != nil {
		log.Debugf("Fork backfill [%d, %d] from %s failed: %v",
			fromHeight, local.Height, addr, err)
		return
	}
	sm.appendBatch(addr, blocks)
}

// fatalStoreError reports an unrecoverable chain store failure and requests
// daemon shutdown.  Syncing differently cannot repair a corrupt store, so
// the process owner gets to decide what to do.
func (sm *SyncManager) fatalStoreError(blockHash chainhash.Hash, err error) {
	log.Criticalf("Chain store failure appending %v: %v", blockHash, err)
	if sm.requestShutdown != nil {
		sm.requestShutdown()
	}
}

// appendBatch feeds fetched blocks through the chain store in ascending
// order.  Orphaned and already known blocks are fine; a rule violation
// aborts the remainder of the batch and counts against the serving peer.
// It returns the number of orphaned blocks and whether the whole batch was
// processed.
func (sm *SyncManager) appendBatch(addr string, blocks []*wire.Block) (int, bool) {
	orphaned := 0
	for i, block := range blocks {
		status, err := sm.chain.TryAppend(block)
		switch status {
		case blockchain.StatusAccepted:
			if err != nil {
				// The block connected but the store failed while
				// connecting a dependent orphan.
				sm.fatalStoreError(block.Hash, err)
				return orphaned, false
			}
			sm.progressLogger.LogBlockHeight(block)

		case blockchain.StatusOrphaned:
			// Orphans wait for reconciliation.
			orphaned++

		case blockchain.StatusKnown:
			// Duplicates are expected with concurrent peers.

		case blockchain.StatusRejected:
			if !blockchain.IsRuleError(err) {
				// Store failure, not a bad block.
				sm.fatalStoreError(block.Hash, err)
				return orphaned, false
			}
			log.Warnf("Peer %s served invalid block %v (height "+
				"%d): %v; aborting remaining %d of batch", addr,
				block.Hash, block.Height, err, len(blocks)-i-1)
			sm.peers.RecordContact(addr, 0, false)
			return orphaned, false
		}
	}
	return orphaned, true
}

// maybeReconcile runs fork reconciliation when some orphan segment reaches
// the canonical tip height plus the configured margin.
func (sm *SyncManager) maybeReconcile() {
	candidates, err := sm.chain.ForkCandidates()
	if err != nil {
		log.Errorf("Failed to assemble fork candidates: %v", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	state := sm.chain.BestSnapshot()
	trigger := false
	for _, segment := range candidates {
		segTip := segment[len(segment)-1]
		if segTip.Height >= state.Height+sm.reconcileMargin {
			trigger = true
			break
		}
	}
	if !trigger {
		return
	}

	applied, err := sm.chain.Reconcile()
	if err != nil {
		var assertErr blockchain.AssertError
		if errors.As(err, &assertErr) {
			log.Criticalf("Chain store failure during "+
				"reconciliation: %v", err)
			if sm.requestShutdown != nil {
				sm.requestShutdown()
			}
			return
		}
		log.Errorf("Reconciliation failed: %v", err)
		return
	}
	if applied {
		newState := sm.chain.BestSnapshot()
		log.Infof("Reconciled to new tip %v (height %d)", newState.Hash,
			newState.Height)
	}
}

// announceBlock pushes the block to a bounded fan-out of active peers,
// excluding the peer it came from.  Recently announced hash/peer pairs are
// skipped so relays do not echo back and forth.  Announces are best effort:
// failures are logged and never retried.
func (sm *SyncManager) announceBlock(block *wire.Block, excludePeer string) {
	// Announces arriving through the inbound handler during shutdown
	// must not add to the wait group Stop is already waiting on.
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}

	peers := sm.peers.ActivePeers(sm.fanOut + 1)

	sent := 0
	for _, peer := range peers {
		if sent >= sm.fanOut {
			break
		}
		if peer.Address == excludePeer {
			continue
		}
		key := block.Hash.String() + "|" + peer.Address
		if sm.announced.Contains(key) {
			continue
		}
		sm.announced.Add(key)
		sent++

		sm.wg.Add(1)
		go func(addr string) {
			defer sm.wg.Done()

			ctx, cancel := context.WithTimeout(
				context.Background(), gossip.DefaultTimeout)
			defer cancel()

			_, err := sm.transport.Announce(ctx, addr, block,
				sm.selfAddr)
			if err != nil {
				log.Debugf("Failed to announce %v to %s: %v",
					block.Hash, addr, err)
			}
		}(peer.Address)
	}
	if sent > 0 {
		log.Debugf("Announced block %v (height %d) to %d peers",
			block.Hash, block.Height, sent)
	}
}

// discoverPeers exchanges peer lists with a few active peers and registers
// any newly learned addresses.
func (sm *SyncManager) discoverPeers() {
	peers := sm.peers.ActivePeers(discoveryFanOut)
	for _, peer := range peers {
		ctx, cancel := context.WithTimeout(context.Background(),
			gossip.DefaultTimeout)
		addrs, err := sm.transport.ExchangePeers(ctx, peer.Address,
			sm.selfAddr)
		cancel()
		if err != nil {
			log.Debugf("Peer exchange with %s failed: %v",
				peer.Address, err)
			continue
		}

		learned := 0
		for _, addr := range addrs {
			if addr == sm.selfAddr || addr == "" {
				continue
			}
			if sm.peers.Register(addr, peermgr.SourceExchange) {
				learned++
			}
		}
		if learned > 0 {
			log.Debugf("Learned %d new peers from %s", learned,
				peer.Address)
		}
	}
}

// SubmitLocalBlock feeds a locally produced block through the chain store
// and, when it is accepted, announces it to the fan-out set.  It returns the
// store's status so the producer can react to rejections.
func (sm *SyncManager) SubmitLocalBlock(block *wire.Block) (blockchain.Status, error) {
	status, err := sm.chain.TryAppend(block)
	if status == blockchain.StatusAccepted {
		if err != nil {
			sm.fatalStoreError(block.Hash, err)
			return status, err
		}
		sm.progressLogger.LogBlockHeight(block)
		sm.announceBlock(block, "")
		sm.maybeReconcile()
	}
	return status, err
}

// Status returns a point-in-time snapshot of the sync engine.
func (sm *SyncManager) Status() *ManagerStatus {
	state := sm.chain.BestSnapshot()
	status := ManagerStatus{
		TipHeight:   state.Height,
		TipHash:     state.Hash,
		KnownPeers:  sm.peers.Count(),
		ActivePeers: len(sm.peers.ActivePeers(0)),
		OrphanCount: sm.chain.OrphanCount(),
	}

	sm.sessionMtx.Lock()
	for _, session := range sm.sessions {
		status.Sessions = append(status.Sessions, SessionInfo{
			Peer:       session.peer,
			State:      session.state.String(),
			StartedAt:  session.startedAt,
			FromHeight: session.fromHeight,
			ToHeight:   session.toHeight,
		})
	}
	sm.sessionMtx.Unlock()
	return &status
}

// OnSummary returns the node's tip summary.  It is part of the
// gossip.Handler implementation.
func (sm *SyncManager) OnSummary() *wire.MsgSummary {
	state := sm.chain.BestSnapshot()
	return wire.NewMsgSummary(state.Height, state.Hash)
}

// OnGetBlocks serves a canonical block range, truncating the reply at the
// per-message cap.  It is part of the gossip.Handler implementation.
func (sm *SyncManager) OnGetBlocks(fromHeight, toHeight int64) (*wire.MsgBlocks, error) {
	truncated := false
	if toHeight-fromHeight+1 > wire.MaxBlocksPerMsg {
		toHeight = fromHeight + wire.MaxBlocksPerMsg - 1
		truncated = true
	}

	blocks, err := sm.chain.GetRange(fromHeight, toHeight)
	if err != nil {
		var rangeErr blockchain.RangeError
		if errors.As(err, &rangeErr) {
			return nil, fmt.Errorf("%v: %w", rangeErr,
				gossip.ErrRangeUnavailable)
		}
		return nil, err
	}

	// The count cap alone cannot keep a reply of maximal blocks inside
	// the envelope limit, so the encoded-bytes budget truncates as well.
	reply := wire.NewMsgBlocks()
	encodedSize := 0
	for _, block := range blocks {
		encodedSize += block.EncodedSize()
		if encodedSize > wire.MaxBlocksEncodedSize {
			truncated = true
			break
		}
		if err := reply.AddBlock(block); err != nil {
			return nil, err
		}
	}
	reply.Truncated = truncated
	return reply, nil
}

// OnAnnounce feeds an announced block through the chain store.  Accepted
// blocks are relayed onward; orphaned blocks schedule a targeted pull from
// the announcing peer so the gap is filled without waiting a full tick.  It
// is part of the gossip.Handler implementation.
func (sm *SyncManager) OnAnnounce(block *wire.Block, from string) (bool, error) {
	if from != "" {
		sm.peers.Register(from, peermgr.SourceInbound)
	}

	status, err := sm.chain.TryAppend(block)
	switch status {
	case blockchain.StatusAccepted:
		if err != nil {
			sm.fatalStoreError(block.Hash, err)
			return true, err
		}
		sm.progressLogger.LogBlockHeight(block)
		sm.announceBlock(block, from)
		sm.maybeReconcile()
		return true, nil

	case blockchain.StatusKnown:
		return true, nil

	case blockchain.StatusOrphaned:
		if from != "" {
			select {
			case sm.pullCh <- from:
				log.Debugf("Scheduled targeted pull from %s "+
					"for orphan %v", from, block.Hash)
			default:
				// Queue full; the next tick covers it.
			}
		}
		return true, nil
	}

	if blockchain.IsRuleError(err) {
		log.Debugf("Rejected announced block %v: %v", block.Hash, err)
		return false, nil
	}
	sm.fatalStoreError(block.Hash, err)
	return false, err
}

// OnGetPeers answers a peer exchange: the requester's address joins the
// registry and a bounded shuffled address sample goes back.  It is part of
// the gossip.Handler implementation.
func (sm *SyncManager) OnGetPeers(self string) []string {
	if self != "" {
		sm.peers.Register(self, peermgr.SourceInbound)
	}
	return sm.peers.AddressCache(wire.MaxAddressesPerMsg)
}
