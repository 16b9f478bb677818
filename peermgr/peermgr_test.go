// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peermgr

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

// TestRegister tests idempotent insertion and that re-registration never
// resets liveness state.
func TestRegister(t *testing.T) {
	pm := New(&Config{})

	if !pm.Register("10.0.0.1:7445", SourceBootstrap) {
		t.Fatal("Register: first insert reported existing")
	}
	if pm.Register("10.0.0.1:7445", SourceExchange) {
		t.Fatal("Register: duplicate insert reported new")
	}
	if got := pm.Count(); got != 1 {
		t.Fatalf("Count: got %d, want 1", got)
	}

	// A failure streak must survive re-registration.
	pm.RecordContact("10.0.0.1:7445", 0, false)
	pm.RecordContact("10.0.0.1:7445", 0, false)
	pm.Register("10.0.0.1:7445", SourceInbound)

	peer, ok := pm.Peer("10.0.0.1:7445")
	if !ok {
		t.Fatal("Peer: registered address unknown")
	}
	if peer.failures != 2 {
		t.Fatalf("failures after re-register: got %d, want 2",
			peer.failures)
	}
	if peer.Source != SourceBootstrap {
		t.Fatalf("source after re-register: got %v, want %v",
			peer.Source, SourceBootstrap)
	}
}

// TestRecordContactUnreachable tests the consecutive-failure classification:
// a peer becomes unreachable after three failures in a row, drops out of
// fan-out selection, and recovers on the next success.
func TestRecordContactUnreachable(t *testing.T) {
	pm := New(&Config{})
	pm.Register("10.0.0.1:7445", SourceBootstrap)

	// Two failures leave the peer selectable.
	pm.RecordContact("10.0.0.1:7445", 0, false)
	pm.RecordContact("10.0.0.1:7445", 0, false)
	if got := len(pm.ActivePeers(0)); got != 1 {
		t.Fatalf("ActivePeers after 2 failures: got %d peers, want 1",
			got)
	}

	// An interleaved success resets the streak, so two more failures
	// still do not trip the threshold.
	pm.RecordContact("10.0.0.1:7445", 42, true)
	pm.RecordContact("10.0.0.1:7445", 0, false)
	pm.RecordContact("10.0.0.1:7445", 0, false)
	peer, _ := pm.Peer("10.0.0.1:7445")
	if peer.Status != StatusActive {
		t.Fatalf("status after reset streak: got %v, want %v",
			peer.Status, StatusActive)
	}
	if peer.DeclaredHeight != 42 {
		t.Fatalf("DeclaredHeight: got %d, want 42", peer.DeclaredHeight)
	}

	// The third consecutive failure classifies the peer unreachable.
	pm.RecordContact("10.0.0.1:7445", 0, false)
	peer, _ = pm.Peer("10.0.0.1:7445")
	if peer.Status != StatusUnreachable {
		t.Fatalf("status after 3 failures: got %v, want %v",
			peer.Status, StatusUnreachable)
	}
	if got := len(pm.ActivePeers(0)); got != 0 {
		t.Fatalf("ActivePeers with unreachable peer: got %d, want 0",
			got)
	}

	// A later success restores the peer.
	pm.RecordContact("10.0.0.1:7445", 50, true)
	peer, _ = pm.Peer("10.0.0.1:7445")
	if peer.Status != StatusActive || peer.failures != 0 {
		t.Fatalf("peer did not recover: status %v, failures %d",
			peer.Status, peer.failures)
	}
}

// TestRecordContactUnknown ensures contacts for unregistered addresses are
// dropped rather than creating phantom records.
func TestRecordContactUnknown(t *testing.T) {
	pm := New(&Config{})
	pm.RecordContact("10.0.0.9:7445", 10, true)
	if got := pm.Count(); got != 0 {
		t.Fatalf("Count: got %d, want 0", got)
	}
}

// TestActivePeers tests selection ordering and the limit.
func TestActivePeers(t *testing.T) {
	pm := New(&Config{})
	now := time.Now()

	// Install records directly so the orderings are exact.
	pm.peers["10.0.0.1:7445"] = &KnownPeer{
		Address:  "10.0.0.1:7445",
		LastSeen: now.Add(-3 * time.Minute),
		Status:   StatusActive,
	}
	pm.peers["10.0.0.2:7445"] = &KnownPeer{
		Address:  "10.0.0.2:7445",
		LastSeen: now.Add(-1 * time.Minute),
		Status:   StatusActive,
	}
	pm.peers["10.0.0.3:7445"] = &KnownPeer{
		Address:  "10.0.0.3:7445",
		LastSeen: now.Add(-2 * time.Minute),
		Status:   StatusActive,
	}
	pm.peers["10.0.0.4:7445"] = &KnownPeer{
		Address:  "10.0.0.4:7445",
		LastSeen: now,
		Status:   StatusStale,
	}
	pm.peers["10.0.0.5:7445"] = &KnownPeer{
		Address:  "10.0.0.5:7445",
		LastSeen: now,
		Status:   StatusUnreachable,
	}

	got := pm.ActivePeers(0)
	want := []string{"10.0.0.2:7445", "10.0.0.3:7445", "10.0.0.1:7445"}
	if len(got) != len(want) {
		t.Fatalf("ActivePeers(0): got %d peers, want %d", len(got),
			len(want))
	}
	for i, peer := range got {
		if peer.Address != want[i] {
			t.Fatalf("ActivePeers(0)[%d]: got %s, want %s", i,
				peer.Address, want[i])
		}
	}

	got = pm.ActivePeers(2)
	if len(got) != 2 || got[0].Address != want[0] ||
		got[1].Address != want[1] {

		t.Fatalf("ActivePeers(2): got %v", got)
	}
}

// TestReapStale tests removal past the TTL and the stale downgrade past half
// of it.
func TestReapStale(t *testing.T) {
	pm := New(&Config{})
	now := time.Now()
	ttl := 10 * time.Minute

	pm.peers["fresh:7445"] = &KnownPeer{
		Address:  "fresh:7445",
		LastSeen: now.Add(-1 * time.Minute),
		Status:   StatusActive,
	}
	pm.peers["aging:7445"] = &KnownPeer{
		Address:  "aging:7445",
		LastSeen: now.Add(-7 * time.Minute),
		Status:   StatusActive,
	}
	pm.peers["dead:7445"] = &KnownPeer{
		Address:  "dead:7445",
		LastSeen: now.Add(-11 * time.Minute),
		Status:   StatusStale,
	}

	if removed := pm.ReapStale(now, ttl); removed != 1 {
		t.Fatalf("ReapStale: removed %d, want 1", removed)
	}
	if _, ok := pm.Peer("dead:7445"); ok {
		t.Fatal("expired peer survived the reaper")
	}
	if peer, _ := pm.Peer("fresh:7445"); peer.Status != StatusActive {
		t.Fatalf("fresh peer status: got %v, want %v", peer.Status,
			StatusActive)
	}
	if peer, _ := pm.Peer("aging:7445"); peer.Status != StatusStale {
		t.Fatalf("aging peer status: got %v, want %v", peer.Status,
			StatusStale)
	}
}

// TestAddressCache tests that exchange replies exclude unreachable peers
// and honor the cap.
func TestAddressCache(t *testing.T) {
	pm := New(&Config{})
	pm.peers["a:7445"] = &KnownPeer{Address: "a:7445", Status: StatusActive}
	pm.peers["b:7445"] = &KnownPeer{Address: "b:7445", Status: StatusStale}
	pm.peers["c:7445"] = &KnownPeer{
		Address: "c:7445",
		Status:  StatusUnreachable,
	}

	addrs := pm.AddressCache(0)
	if len(addrs) != 2 {
		t.Fatalf("AddressCache(0): got %d addresses, want 2", len(addrs))
	}
	for _, addr := range addrs {
		if addr == "c:7445" {
			t.Fatal("AddressCache returned an unreachable peer")
		}
	}

	if got := pm.AddressCache(1); len(got) != 1 {
		t.Fatalf("AddressCache(1): got %d addresses, want 1", len(got))
	}
}

// TestPeersFileRoundTrip tests that the registry persisted on Stop is
// restored by a fresh registry's Start.
func TestPeersFileRoundTrip(t *testing.T) {
	defer leaktest.Check(t)()

	peersFile := filepath.Join(t.TempDir(), "peers.json")

	pm := New(&Config{PeersFile: peersFile})
	pm.Start()
	pm.Register("10.0.0.1:7445", SourceBootstrap)
	pm.Register("10.0.0.2:7445", SourceExchange)
	pm.RecordContact("10.0.0.2:7445", 77, true)
	if err := pm.Stop(); err != nil {
		t.Fatalf("Stop: unexpected error %v", err)
	}

	restored := New(&Config{PeersFile: peersFile})
	restored.Start()
	defer func() {
		if err := restored.Stop(); err != nil {
			t.Fatalf("Stop: unexpected error %v", err)
		}
	}()

	if got := restored.Count(); got != 2 {
		t.Fatalf("Count after restore: got %d, want 2", got)
	}
	peer, ok := restored.Peer("10.0.0.2:7445")
	if !ok {
		t.Fatal("persisted peer missing after restore")
	}
	if peer.DeclaredHeight != 77 {
		t.Fatalf("DeclaredHeight after restore: got %d, want 77",
			peer.DeclaredHeight)
	}
	if peer.Source != SourceExchange {
		t.Fatalf("Source after restore: got %v, want %v", peer.Source,
			SourceExchange)
	}
}

// TestPeersFileCorrupt tests that a corrupt peers file is discarded and the
// registry starts empty instead of failing.
func TestPeersFileCorrupt(t *testing.T) {
	defer leaktest.Check(t)()

	peersFile := filepath.Join(t.TempDir(), "peers.json")
	if err := os.WriteFile(peersFile, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: unexpected error %v", err)
	}

	pm := New(&Config{PeersFile: peersFile})
	pm.Start()
	defer func() {
		if err := pm.Stop(); err != nil {
			t.Fatalf("Stop: unexpected error %v", err)
		}
	}()

	if got := pm.Count(); got != 0 {
		t.Fatalf("Count after corrupt load: got %d, want 0", got)
	}
	if _, err := os.Stat(peersFile); !os.IsNotExist(err) {
		t.Fatal("corrupt peers file was not removed")
	}
}
