// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gossip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/fortytw2/leaktest"

	"github.com/rustchain-network/rustsyncd/wire"
)

// fakeHandler is a scriptable gossip Handler for transport tests.
type fakeHandler struct {
	mtx sync.Mutex

	summary   *wire.MsgSummary
	blocks    *wire.MsgBlocks
	blocksErr error
	accepted  bool
	peers     []string

	lastRange    [2]int64
	lastAnnounce *wire.MsgAnnounce
	lastSelf     string
	panicOnce    bool
}

func (h *fakeHandler) OnSummary() *wire.MsgSummary {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.panicOnce {
		h.panicOnce = false
		panic("scripted handler panic")
	}
	return h.summary
}

func (h *fakeHandler) OnGetBlocks(fromHeight, toHeight int64) (*wire.MsgBlocks, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.lastRange = [2]int64{fromHeight, toHeight}
	return h.blocks, h.blocksErr
}

func (h *fakeHandler) OnAnnounce(block *wire.Block, from string) (bool, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.lastAnnounce = wire.NewMsgAnnounce(block, from)
	return h.accepted, nil
}

func (h *fakeHandler) OnGetPeers(self string) []string {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.lastSelf = self
	return h.peers
}

// transportSetup runs a gossip server over httptest and returns a client
// pointed at it plus the peer address to dial.
func transportSetup(t *testing.T, handler Handler) (*Client, string) {
	t.Helper()

	server := NewServer(handler)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	peer := strings.TrimPrefix(ts.URL, "http://")
	return NewClient(&ClientConfig{}), peer
}

// testBlock returns a minimal structurally complete block for transport
// tests.  Transport never validates block contents.
func testBlock(height int64, payload string) *wire.Block {
	block := &wire.Block{
		Height:  height,
		Payload: []byte(payload),
		Producer: wire.ProducerInfo{
			PubKey:        bytes.Repeat([]byte{0x22}, 32),
			HardwareClass: "workstation/2",
			Weight:        1.0,
		},
		Signature: bytes.Repeat([]byte{0x33}, 64),
	}
	block.Hash = block.BlockHash()
	return block
}

// TestFetchSummary tests the summary round trip.
func TestFetchSummary(t *testing.T) {
	tipHash := chainhash.DoubleHashH([]byte("tip"))
	handler := &fakeHandler{summary: wire.NewMsgSummary(42, tipHash)}
	client, peer := transportSetup(t, handler)

	summary, err := client.FetchSummary(context.Background(), peer)
	if err != nil {
		t.Fatalf("FetchSummary: unexpected error %v", err)
	}
	if summary.TipHeight != 42 {
		t.Fatalf("TipHeight: got %d, want 42", summary.TipHeight)
	}
	if !summary.TipHash.IsEqual(&tipHash) {
		t.Fatalf("TipHash: got %v, want %v", summary.TipHash, tipHash)
	}
}

// TestFetchBlocks tests the block range round trip including the truncation
// flag.
func TestFetchBlocks(t *testing.T) {
	reply := wire.NewMsgBlocks()
	for height := int64(5); height <= 7; height++ {
		block := testBlock(height, fmt.Sprintf("block %d", height))
		if err := reply.AddBlock(block); err != nil {
			t.Fatalf("AddBlock: unexpected error %v", err)
		}
	}
	reply.Truncated = true

	handler := &fakeHandler{blocks: reply}
	client, peer := transportSetup(t, handler)

	blocks, truncated, err := client.FetchBlocks(context.Background(), peer,
		5, 500)
	if err != nil {
		t.Fatalf("FetchBlocks: unexpected error %v", err)
	}
	if handler.lastRange != [2]int64{5, 500} {
		t.Fatalf("requested range: got %v, want [5 500]",
			handler.lastRange)
	}
	if !truncated {
		t.Fatal("truncation flag did not survive the round trip")
	}
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	for i, block := range blocks {
		if block.Height != int64(5+i) {
			t.Fatalf("block #%d: got height %d, want %d", i,
				block.Height, 5+i)
		}
		if !block.Hash.IsEqual(&reply.Blocks[i].Hash) {
			t.Fatalf("block #%d did not round trip", i)
		}
	}
}

// TestFetchBlocksRangeUnavailable tests that a range refusal maps back to
// ErrRangeUnavailable on the client side.
func TestFetchBlocksRangeUnavailable(t *testing.T) {
	handler := &fakeHandler{
		blocksErr: fmt.Errorf("heights beyond tip: %w",
			ErrRangeUnavailable),
	}
	client, peer := transportSetup(t, handler)

	_, _, err := client.FetchBlocks(context.Background(), peer, 100, 200)
	if !errors.Is(err, ErrRangeUnavailable) {
		t.Fatalf("got error %v, want ErrRangeUnavailable", err)
	}
	var rErr *RemoteError
	if !errors.As(err, &rErr) {
		t.Fatalf("got error %T, want *RemoteError", err)
	}
	if rErr.Code != wire.ErrCodeRangeUnavailable {
		t.Fatalf("remote code: got %s, want %s", rErr.Code,
			wire.ErrCodeRangeUnavailable)
	}
}

// TestAnnounce tests the announce round trip.
func TestAnnounce(t *testing.T) {
	handler := &fakeHandler{accepted: true}
	client, peer := transportSetup(t, handler)

	block := testBlock(9, "announced")
	accepted, err := client.Announce(context.Background(), peer, block,
		"10.0.0.1:7445")
	if err != nil {
		t.Fatalf("Announce: unexpected error %v", err)
	}
	if !accepted {
		t.Fatal("acceptance flag did not survive the round trip")
	}
	if handler.lastAnnounce == nil ||
		!handler.lastAnnounce.Block.Hash.IsEqual(&block.Hash) {

		t.Fatal("announced block did not reach the handler")
	}
	if handler.lastAnnounce.From != "10.0.0.1:7445" {
		t.Fatalf("announce from: got %s, want 10.0.0.1:7445",
			handler.lastAnnounce.From)
	}
}

// TestExchangePeers tests the peer-exchange round trip.
func TestExchangePeers(t *testing.T) {
	handler := &fakeHandler{peers: []string{"10.0.0.2:7445", "10.0.0.3:7445"}}
	client, peer := transportSetup(t, handler)

	addrs, err := client.ExchangePeers(context.Background(), peer,
		"10.0.0.1:7445")
	if err != nil {
		t.Fatalf("ExchangePeers: unexpected error %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("got %d addresses, want 2", len(addrs))
	}
	if handler.lastSelf != "10.0.0.1:7445" {
		t.Fatalf("self address: got %s, want 10.0.0.1:7445",
			handler.lastSelf)
	}
}

// TestServerVersionGate tests that an envelope with an unsupported version
// is refused before its payload is parsed.
func TestServerVersionGate(t *testing.T) {
	handler := &fakeHandler{summary: wire.NewMsgSummary(1, chainhash.Hash{})}
	server := NewServer(handler)
	ts := httptest.NewServer(server)
	defer ts.Close()

	// A deliberately garbled payload proves the version gate fires
	// first.
	raw := fmt.Sprintf(`{"version": %d, "type": "summaryreq", `+
		`"payload": "garbage"}`, wire.ProtocolVersion+1)
	resp, err := http.Post(ts.URL+rpcPath, "application/json",
		strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Post: unexpected error %v", err)
	}
	defer resp.Body.Close()

	reply, err := wire.ReadMessage(resp.Body)
	if err != nil {
		t.Fatalf("ReadMessage: unexpected error %v", err)
	}
	errMsg, ok := reply.(*wire.MsgError)
	if !ok {
		t.Fatalf("got reply %T, want *wire.MsgError", reply)
	}
	if errMsg.Code != wire.ErrCodeUnsupportedVersion {
		t.Fatalf("error code: got %s, want %s", errMsg.Code,
			wire.ErrCodeUnsupportedVersion)
	}
}

// TestServerBadRequest tests the error envelope for undecodable requests
// and for reply-only commands sent as requests.
func TestServerBadRequest(t *testing.T) {
	handler := &fakeHandler{}
	server := NewServer(handler)
	ts := httptest.NewServer(server)
	defer ts.Close()

	post := func(body string) *wire.MsgError {
		t.Helper()
		resp, err := http.Post(ts.URL+rpcPath, "application/json",
			strings.NewReader(body))
		if err != nil {
			t.Fatalf("Post: unexpected error %v", err)
		}
		defer resp.Body.Close()
		reply, err := wire.ReadMessage(resp.Body)
		if err != nil {
			t.Fatalf("ReadMessage: unexpected error %v", err)
		}
		errMsg, ok := reply.(*wire.MsgError)
		if !ok {
			t.Fatalf("got reply %T, want *wire.MsgError", reply)
		}
		return errMsg
	}

	if got := post("{not json"); got.Code != wire.ErrCodeBadRequest {
		t.Fatalf("malformed body: got code %s, want %s", got.Code,
			wire.ErrCodeBadRequest)
	}

	ack, err := json.Marshal(wire.NewMsgAnnounceAck(true))
	if err != nil {
		t.Fatalf("Marshal: unexpected error %v", err)
	}
	raw := fmt.Sprintf(`{"version": %d, "type": "announceack", `+
		`"payload": %s}`, wire.ProtocolVersion, ack)
	if got := post(raw); got.Code != wire.ErrCodeBadRequest {
		t.Fatalf("reply-only command: got code %s, want %s", got.Code,
			wire.ErrCodeBadRequest)
	}
}

// TestServerPanicRecovery tests that a handler panic is answered as an
// internal error and the server keeps serving.
func TestServerPanicRecovery(t *testing.T) {
	tipHash := chainhash.DoubleHashH([]byte("tip"))
	handler := &fakeHandler{
		summary:   wire.NewMsgSummary(7, tipHash),
		panicOnce: true,
	}
	client, peer := transportSetup(t, handler)

	var rErr *RemoteError
	_, err := client.FetchSummary(context.Background(), peer)
	if !errors.As(err, &rErr) || rErr.Code != wire.ErrCodeInternal {
		t.Fatalf("panicked request: got %v, want internal RemoteError",
			err)
	}

	// The next request must succeed.
	summary, err := client.FetchSummary(context.Background(), peer)
	if err != nil {
		t.Fatalf("FetchSummary after panic: unexpected error %v", err)
	}
	if summary.TipHeight != 7 {
		t.Fatalf("TipHeight: got %d, want 7", summary.TipHeight)
	}
}

// TestClientNetworkError tests that connection failures surface as a
// NetworkError regardless of cause.
func TestClientNetworkError(t *testing.T) {
	client := NewClient(&ClientConfig{})

	// A listener that is closed immediately gives a port with nothing
	// behind it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: unexpected error %v", err)
	}
	peer := listener.Addr().String()
	listener.Close()

	_, err = client.FetchSummary(context.Background(), peer)
	var nErr *NetworkError
	if !errors.As(err, &nErr) {
		t.Fatalf("got error %T (%v), want *NetworkError", err, err)
	}
	if nErr.Op != "fetchsummary" || nErr.Addr != peer {
		t.Fatalf("NetworkError fields: got op %s addr %s", nErr.Op,
			nErr.Addr)
	}
}

// TestServerStartStop tests the listener lifecycle end to end on a real TCP
// listener.
func TestServerStartStop(t *testing.T) {
	defer leaktest.Check(t)()

	tipHash := chainhash.DoubleHashH([]byte("tip"))
	handler := &fakeHandler{summary: wire.NewMsgSummary(3, tipHash)}
	server := NewServer(handler)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: unexpected error %v", err)
	}
	server.Start([]net.Listener{listener})

	client := NewClient(&ClientConfig{})
	defer client.Close()
	summary, err := client.FetchSummary(context.Background(),
		listener.Addr().String())
	if err != nil {
		t.Fatalf("FetchSummary: unexpected error %v", err)
	}
	if summary.TipHeight != 3 {
		t.Fatalf("TipHeight: got %d, want 3", summary.TipHeight)
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop: unexpected error %v", err)
	}

	_, err = client.FetchSummary(context.Background(),
		listener.Addr().String())
	var nErr *NetworkError
	if !errors.As(err, &nErr) {
		t.Fatalf("request after Stop: got %v, want *NetworkError", err)
	}
}
