// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
)

// testBlock returns a consistent block for use throughout the tests with its
// hash field populated from the digest of the remaining fields.
func testBlock(height int64, prevHash chainhash.Hash, payload string) *Block {
	block := &Block{
		PrevHash: prevHash,
		Height:   height,
		Payload:  []byte(payload),
		Producer: ProducerInfo{
			PubKey:        bytes.Repeat([]byte{0x42}, 32),
			HardwareClass: "workstation/3",
			Weight:        1.25,
		},
		Signature: bytes.Repeat([]byte{0x1f}, 64),
	}
	block.Hash = block.BlockHash()
	return block
}

// TestMessageRoundTrip tests encoding then decoding every defined message
// yields a value equal to the original for all defined fields.
func TestMessageRoundTrip(t *testing.T) {
	prevHash := chainhash.DoubleHashH([]byte("prev"))
	tipHash := chainhash.DoubleHashH([]byte("tip"))
	block := testBlock(7, prevHash, "round trip payload")

	tests := []Message{
		NewMsgSummaryReq(),
		NewMsgSummary(1024, tipHash),
		NewMsgGetBlocks(6, 505),
		&MsgBlocks{Blocks: []*Block{block}, Truncated: true},
		NewMsgAnnounce(block, "10.0.0.5:7445"),
		NewMsgAnnounceAck(true),
		NewMsgGetPeers("10.0.0.5:7445"),
		NewMsgPeers([]string{"10.0.0.6:7445", "10.0.0.7:7445"}),
		NewMsgError(ErrCodeRangeUnavailable, "height 2 pruned"),
	}

	t.Logf("Running %d tests", len(tests))
	for i, msg := range tests {
		var buf bytes.Buffer
		err := WriteMessage(&buf, msg)
		if err != nil {
			t.Errorf("WriteMessage #%d (%s) error %v", i,
				msg.Command(), err)
			continue
		}

		decoded, err := ReadMessage(&buf)
		if err != nil {
			t.Errorf("ReadMessage #%d (%s) error %v", i,
				msg.Command(), err)
			continue
		}
		if !reflect.DeepEqual(msg, decoded) {
			t.Errorf("ReadMessage #%d (%s) wrong message - got %v, "+
				"want %v", i, msg.Command(),
				spew.Sdump(decoded), spew.Sdump(msg))
		}
	}
}

// TestMessageUnknownFields ensures decoding a payload that carries fields
// this implementation does not know about succeeds and ignores them.
func TestMessageUnknownFields(t *testing.T) {
	raw := fmt.Sprintf(`{"version":%d,"type":"getblocks","payload":`+
		`{"from_height":6,"to_height":8,"compression":"zstd"}}`,
		ProtocolVersion)

	msg, err := ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadMessage: unexpected error %v", err)
	}
	want := NewMsgGetBlocks(6, 8)
	if !reflect.DeepEqual(msg, want) {
		t.Fatalf("ReadMessage: wrong message - got %v, want %v",
			spew.Sdump(msg), spew.Sdump(want))
	}
}

// TestMessageVersionMismatch ensures an envelope with a different major
// version fails with ErrUnsupportedVersion before its payload is parsed.
func TestMessageVersionMismatch(t *testing.T) {
	raw := fmt.Sprintf(`{"version":%d,"type":"summaryreq","payload":{}}`,
		ProtocolVersion+1)

	_, err := ReadMessage(strings.NewReader(raw))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("ReadMessage: expected ErrUnsupportedVersion, got %v",
			err)
	}

	// The payload being garbage must not matter since the version gate
	// runs first.
	raw = fmt.Sprintf(`{"version":%d,"type":"blocks","payload":"garbage"}`,
		ProtocolVersion+1)
	_, err = ReadMessage(strings.NewReader(raw))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("ReadMessage: expected ErrUnsupportedVersion, got %v",
			err)
	}
}

// TestMessageErrors performs negative tests against decoding messages to
// confirm malformed and out-of-bounds inputs return the expected errors.
func TestMessageErrors(t *testing.T) {
	manyAddrs := make([]string, MaxAddressesPerMsg+1)
	for i := range manyAddrs {
		manyAddrs[i] = fmt.Sprintf(`"peer%d:7445"`, i)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "malformed envelope",
			raw:  `{"version":1,`,
		},
		{
			name: "unknown command",
			raw:  fmt.Sprintf(`{"version":%d,"type":"mempool"}`, ProtocolVersion),
		},
		{
			name: "empty command",
			raw:  fmt.Sprintf(`{"version":%d,"type":""}`, ProtocolVersion),
		},
		{
			name: "oversized command",
			raw:  fmt.Sprintf(`{"version":%d,"type":"averyverylongcommandname"}`, ProtocolVersion),
		},
		{
			name: "negative summary height",
			raw: fmt.Sprintf(`{"version":%d,"type":"summary",`+
				`"payload":{"tip_height":-1,"tip_hash":"%s"}}`,
				ProtocolVersion, chainhash.Hash{}),
		},
		{
			name: "invalid summary hash",
			raw: fmt.Sprintf(`{"version":%d,"type":"summary",`+
				`"payload":{"tip_height":5,"tip_hash":"nothex"}}`,
				ProtocolVersion),
		},
		{
			name: "too many addresses",
			raw: fmt.Sprintf(`{"version":%d,"type":"peers",`+
				`"payload":{"addresses":[%s]}}`, ProtocolVersion,
				strings.Join(manyAddrs, ",")),
		},
	}

	t.Logf("Running %d tests", len(tests))
	for _, test := range tests {
		_, err := ReadMessage(strings.NewReader(test.raw))
		if err == nil {
			t.Errorf("%s: expected error, got none", test.name)
		}
	}
}

// TestMsgBlocksAddBlock ensures the per-message block limit is enforced when
// building a blocks response.
func TestMsgBlocksAddBlock(t *testing.T) {
	msg := NewMsgBlocks()
	block := testBlock(1, chainhash.Hash{}, "limit test")
	for i := 0; i < MaxBlocksPerMsg; i++ {
		if err := msg.AddBlock(block); err != nil {
			t.Fatalf("AddBlock #%d: unexpected error %v", i, err)
		}
	}
	if err := msg.AddBlock(block); err == nil {
		t.Fatal("AddBlock: expected max blocks per message error")
	}
}
