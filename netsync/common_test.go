// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rustchain-network/rustsyncd/blockchain"
	"github.com/rustchain-network/rustsyncd/chaincfg"
	"github.com/rustchain-network/rustsyncd/database/engine"
	"github.com/rustchain-network/rustsyncd/database/engine/leveldb"
	"github.com/rustchain-network/rustsyncd/gossip"
	"github.com/rustchain-network/rustsyncd/identity"
	"github.com/rustchain-network/rustsyncd/peermgr"
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

// fakePeer scripts one remote node for the fake transport.
type fakePeer struct {
	// chain is the peer's canonical chain excluding genesis, ascending
	// by height starting at 1.
	chain []*wire.Block

	// failSummary and failBlocks make the respective calls fail with a
	// NetworkError.
	failSummary bool
	failBlocks  bool

	// corruptAt tampers the payload of the block at that height when it
	// is served, simulating an invalid block mid-batch.
	corruptAt int64

	// exchangeAddrs is the scripted peer-exchange reply.
	exchangeAddrs []string
}

// fakeTransport is a scripted in-memory Transport for manager tests.
type fakeTransport struct {
	mtx   sync.Mutex
	peers map[string]*fakePeer

	// announces records every delivered announce as "peer|hash".
	announces []string

	// exchanges counts peer-exchange calls per peer.
	exchanges map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		peers:     make(map[string]*fakePeer),
		exchanges: make(map[string]int),
	}
}

func (ft *fakeTransport) addPeer(addr string, peer *fakePeer) {
	ft.mtx.Lock()
	ft.peers[addr] = peer
	ft.mtx.Unlock()
}

func (ft *fakeTransport) peerFor(addr string) (*fakePeer, error) {
	peer, ok := ft.peers[addr]
	if !ok {
		return nil, &gossip.NetworkError{
			Op:   "dial",
			Addr: addr,
			Err:  errors.New("no such peer"),
		}
	}
	return peer, nil
}

func (ft *fakeTransport) FetchSummary(_ context.Context, addr string) (*wire.MsgSummary, error) {
	ft.mtx.Lock()
	defer ft.mtx.Unlock()

	peer, err := ft.peerFor(addr)
	if err != nil {
		return nil, err
	}
	if peer.failSummary {
		return nil, &gossip.NetworkError{
			Op:   "fetchsummary",
			Addr: addr,
			Err:  errors.New("scripted failure"),
		}
	}
	if len(peer.chain) == 0 {
		return wire.NewMsgSummary(0,
			*chaincfg.SimNetParams.GenesisHash), nil
	}
	tip := peer.chain[len(peer.chain)-1]
	return wire.NewMsgSummary(tip.Height, tip.Hash), nil
}

func (ft *fakeTransport) FetchBlocks(_ context.Context, addr string,
	fromHeight, toHeight int64) ([]*wire.Block, bool, error) {

	ft.mtx.Lock()
	defer ft.mtx.Unlock()

	peer, err := ft.peerFor(addr)
	if err != nil {
		return nil, false, err
	}
	if peer.failBlocks {
		return nil, false, &gossip.NetworkError{
			Op:   "fetchblocks",
			Addr: addr,
			Err:  errors.New("scripted failure"),
		}
	}

	var blocks []*wire.Block
	for _, block := range peer.chain {
		if block.Height < fromHeight || block.Height > toHeight {
			continue
		}
		if block.Height == peer.corruptAt {
			bad := *block
			bad.Payload = []byte("corrupted in transit")
			blocks = append(blocks, &bad)
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks, false, nil
}

func (ft *fakeTransport) Announce(_ context.Context, addr string,
	block *wire.Block, _ string) (bool, error) {

	ft.mtx.Lock()
	defer ft.mtx.Unlock()

	if _, err := ft.peerFor(addr); err != nil {
		return false, err
	}
	ft.announces = append(ft.announces, addr+"|"+block.Hash.String())
	return true, nil
}

func (ft *fakeTransport) ExchangePeers(_ context.Context, addr,
	_ string) ([]string, error) {

	ft.mtx.Lock()
	defer ft.mtx.Unlock()

	peer, err := ft.peerFor(addr)
	if err != nil {
		return nil, err
	}
	ft.exchanges[addr]++
	return peer.exchangeAddrs, nil
}

func (ft *fakeTransport) announceCount() int {
	ft.mtx.Lock()
	defer ft.mtx.Unlock()
	return len(ft.announces)
}

// faultEngine wraps a storage engine and fails every Transaction call after
// a scripted number of successful ones, simulating the store giving out
// partway through connecting a batch.
type faultEngine struct {
	engine.Engine

	mtx       sync.Mutex
	remaining int
}

// newFaultEngine returns a fault engine that allows every transaction until
// failAfter arms it.
func newFaultEngine(inner engine.Engine) *faultEngine {
	return &faultEngine{Engine: inner, remaining: -1}
}

// failAfter allows count more transactions and then fails each one that
// follows.
func (fe *faultEngine) failAfter(count int) {
	fe.mtx.Lock()
	fe.remaining = count
	fe.mtx.Unlock()
}

func (fe *faultEngine) Transaction() (engine.Transaction, error) {
	fe.mtx.Lock()
	defer fe.mtx.Unlock()

	if fe.remaining == 0 {
		return nil, errors.New("scripted transaction failure")
	}
	if fe.remaining > 0 {
		fe.remaining--
	}
	return fe.Engine.Transaction()
}

// managerSetup wires a sync manager to a fresh chain store, an empty peer
// registry, and the given fake transport.
func managerSetup(t *testing.T, transport Transport, cfg Config) (*SyncManager, *blockchain.BlockChain, *peermgr.PeerManager) {
	t.Helper()

	db, err := leveldb.NewDB(filepath.Join(t.TempDir(), "synctest"), true)
	if err != nil {
		t.Fatalf("leveldb.NewDB: unexpected error %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: &chaincfg.SimNetParams,
		Verifier:    identity.Ed25519Verifier{},
	})
	if err != nil {
		t.Fatalf("blockchain.New: unexpected error %v", err)
	}

	peers := peermgr.New(&peermgr.Config{})

	cfg.Chain = chain
	cfg.Peers = peers
	cfg.Transport = transport
	sm, err := New(&cfg)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	return sm, chain, peers
}
