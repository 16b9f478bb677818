// Copyright (c) 2026 The rustsyncd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MsgSummaryReq requests a chain summary from a remote peer.  It carries no
// payload.
type MsgSummaryReq struct{}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgSummaryReq) Command() string {
	return CmdSummaryReq
}

// NewMsgSummaryReq returns a new summary request message.
func NewMsgSummaryReq() *MsgSummaryReq {
	return &MsgSummaryReq{}
}

// MsgSummary is the response to a summary request and describes the sender's
// canonical chain tip.
type MsgSummary struct {
	// TipHeight is the height of the sender's canonical tip.
	TipHeight int64

	// TipHash is the hash of the sender's canonical tip.
	TipHash chainhash.Hash
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgSummary) Command() string {
	return CmdSummary
}

// NewMsgSummary returns a new summary message describing the given tip.
func NewMsgSummary(tipHeight int64, tipHash chainhash.Hash) *MsgSummary {
	return &MsgSummary{TipHeight: tipHeight, TipHash: tipHash}
}

type summaryJSON struct {
	TipHeight int64  `json:"tip_height"`
	TipHash   string `json:"tip_hash"`
}

// MarshalJSON implements the json.Marshaler interface.
func (msg MsgSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		TipHeight: msg.TipHeight,
		TipHash:   msg.TipHash.String(),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (msg *MsgSummary) UnmarshalJSON(data []byte) error {
	var sj summaryJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	hash, err := chainhash.NewHashFromStr(sj.TipHash)
	if err != nil {
		return messageError("MsgSummary.UnmarshalJSON",
			fmt.Sprintf("invalid tip hash %q: %v", sj.TipHash, err))
	}
	if sj.TipHeight < 0 {
		return messageError("MsgSummary.UnmarshalJSON",
			fmt.Sprintf("negative tip height %d", sj.TipHeight))
	}
	msg.TipHeight = sj.TipHeight
	msg.TipHash = *hash
	return nil
}
